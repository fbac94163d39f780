package wasm

import (
	"errors"
	"fmt"
)

// Parsing errors returned by ParseModule.
var (
	ErrInvalidMagic   = errors.New("invalid wasm magic number")
	ErrInvalidVersion = errors.New("invalid wasm version")
)

// ParseModule parses a WebAssembly binary module. Only the sections that
// shape function bodies are decoded; the rest are checked for order and
// skipped.
func ParseModule(data []byte) (*Module, error) {
	r := newReader(data)

	magic, err := r.readU32LE()
	if err != nil {
		return nil, r.wrap("header", err)
	}
	if magic != Magic {
		return nil, ErrInvalidMagic
	}

	version, err := r.readU32LE()
	if err != nil {
		return nil, r.wrap("header", err)
	}
	if version != Version {
		return nil, ErrInvalidVersion
	}

	m := &Module{}
	var lastSectionOrder int

	for r.len() > 0 {
		sectionID, err := r.readByte()
		if err != nil {
			return nil, r.wrap("section header", err)
		}

		if sectionID != SectionCustom {
			order := sectionOrder(sectionID)
			if order == 0 {
				return nil, fmt.Errorf("unknown section ID: 0x%02x", sectionID)
			}
			if order <= lastSectionOrder {
				return nil, fmt.Errorf("section %d appears out of order", sectionID)
			}
			lastSectionOrder = order
		}

		size, err := r.readU32()
		if err != nil {
			return nil, r.wrap("section size", err)
		}
		body, err := r.readBytes(int(size))
		if err != nil {
			return nil, r.wrap("section data", err)
		}

		sr := newReader(body)
		switch sectionID {
		case SectionType:
			err = parseTypeSection(sr, m)
		case SectionImport:
			err = parseImportSection(sr, m)
		case SectionFunction:
			err = parseFunctionSection(sr, m)
		case SectionExport:
			err = parseExportSection(sr, m)
		case SectionCode:
			err = parseCodeSection(sr, m)
		}
		if err != nil {
			return nil, fmt.Errorf("%s section: %w", sectionName(sectionID), err)
		}
	}

	if len(m.Funcs) != len(m.Code) {
		return nil, fmt.Errorf("function and code section counts differ: %d vs %d", len(m.Funcs), len(m.Code))
	}

	return m, nil
}

// sectionOrder returns the canonical position of a section, or 0 for an
// unknown ID. Tag and data count sit between their neighbours by position, not
// by ID.
func sectionOrder(id byte) int {
	switch id {
	case SectionType:
		return 1
	case SectionImport:
		return 2
	case SectionFunction:
		return 3
	case SectionTable:
		return 4
	case SectionMemory:
		return 5
	case SectionTag:
		return 6
	case SectionGlobal:
		return 7
	case SectionExport:
		return 8
	case SectionStart:
		return 9
	case SectionElement:
		return 10
	case SectionDataCount:
		return 11
	case SectionCode:
		return 12
	case SectionData:
		return 13
	default:
		return 0
	}
}

func sectionName(id byte) string {
	switch id {
	case SectionType:
		return "type"
	case SectionImport:
		return "import"
	case SectionFunction:
		return "function"
	case SectionExport:
		return "export"
	case SectionCode:
		return "code"
	default:
		return fmt.Sprintf("id %d", id)
	}
}

func parseTypeSection(r *reader, m *Module) error {
	count, err := r.readCount()
	if err != nil {
		return err
	}
	m.Types = make([]FuncType, count)
	for i := uint32(0); i < count; i++ {
		form, err := r.readByte()
		if err != nil {
			return err
		}
		if form != FuncTypeByte {
			return fmt.Errorf("unsupported type form 0x%02x at index %d", form, i)
		}
		params, err := readValTypes(r)
		if err != nil {
			return err
		}
		results, err := readValTypes(r)
		if err != nil {
			return err
		}
		m.Types[i] = FuncType{Params: params, Results: results}
	}
	return nil
}

func readValTypes(r *reader) ([]ValType, error) {
	count, err := r.readCount()
	if err != nil {
		return nil, err
	}
	types := make([]ValType, count)
	for i := range types {
		b, err := r.readByte()
		if err != nil {
			return nil, err
		}
		types[i] = ValType(b)
	}
	return types, nil
}

func parseImportSection(r *reader, m *Module) error {
	count, err := r.readCount()
	if err != nil {
		return err
	}
	m.Imports = make([]Import, count)
	for i := uint32(0); i < count; i++ {
		module, err := r.readName()
		if err != nil {
			return err
		}
		name, err := r.readName()
		if err != nil {
			return err
		}
		kind, err := r.readByte()
		if err != nil {
			return err
		}

		imp := Import{Module: module, Name: name, Kind: kind}
		switch kind {
		case KindFunc:
			imp.TypeIdx, err = r.readU32()
		case KindTable:
			if _, err = r.readByte(); err == nil {
				err = skipLimits(r)
			}
		case KindMemory:
			err = skipLimits(r)
		case KindGlobal:
			_, err = r.readBytes(2) // valtype, mutability
		case KindTag:
			if _, err = r.readByte(); err == nil {
				_, err = r.readU32()
			}
		default:
			return fmt.Errorf("unknown import kind: %d", kind)
		}
		if err != nil {
			return err
		}
		m.Imports[i] = imp
	}
	return nil
}

// skipLimits consumes table or memory limits, including memory64 and
// shared flags.
func skipLimits(r *reader) error {
	flags, err := r.readByte()
	if err != nil {
		return err
	}
	read := r.readU64
	if flags&0x04 == 0 {
		read = func() (uint64, error) {
			v, err := r.readU32()
			return uint64(v), err
		}
	}
	if _, err := read(); err != nil {
		return err
	}
	if flags&0x01 != 0 {
		if _, err := read(); err != nil {
			return err
		}
	}
	return nil
}

func parseFunctionSection(r *reader, m *Module) error {
	count, err := r.readCount()
	if err != nil {
		return err
	}
	m.Funcs = make([]uint32, count)
	for i := range m.Funcs {
		m.Funcs[i], err = r.readU32()
		if err != nil {
			return err
		}
	}
	return nil
}

func parseExportSection(r *reader, m *Module) error {
	count, err := r.readCount()
	if err != nil {
		return err
	}
	m.Exports = make([]Export, count)
	for i := uint32(0); i < count; i++ {
		name, err := r.readName()
		if err != nil {
			return err
		}
		kind, err := r.readByte()
		if err != nil {
			return err
		}
		if kind > KindTag {
			return fmt.Errorf("invalid export kind: 0x%02x", kind)
		}
		idx, err := r.readU32()
		if err != nil {
			return err
		}
		m.Exports[i] = Export{Name: name, Kind: kind, Idx: idx}
	}
	return nil
}

func parseCodeSection(r *reader, m *Module) error {
	count, err := r.readCount()
	if err != nil {
		return err
	}
	m.Code = make([]FuncBody, count)
	for i := uint32(0); i < count; i++ {
		size, err := r.readU32()
		if err != nil {
			return err
		}
		data, err := r.readBytes(int(size))
		if err != nil {
			return err
		}

		br := newReader(data)
		groups, err := br.readCount()
		if err != nil {
			return err
		}
		locals := make([]LocalEntry, 0, groups)
		for j := uint32(0); j < groups; j++ {
			n, err := br.readU32()
			if err != nil {
				return err
			}
			t, err := br.readByte()
			if err != nil {
				return err
			}
			locals = append(locals, LocalEntry{Count: n, ValType: ValType(t)})
		}

		code, err := br.readBytes(br.len())
		if err != nil {
			return err
		}
		m.Code[i] = FuncBody{Locals: locals, Code: code}
	}
	return nil
}
