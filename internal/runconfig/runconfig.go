package runconfig

import (
	"encoding/json"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

// Shape identifies which JSON layout a run config file uses. Universal files
// nest their fields under named top-level sections; legacy files keep every
// field at the root.
type Shape int

const (
	ShapeLegacy Shape = iota
	ShapeUniversal
)

func (s Shape) String() string {
	if s == ShapeUniversal {
		return "universal"
	}

	return "legacy"
}

// sections is the universal layout. The presence of any generation section
// marks a file as universal; shape detection happens once at load, never
// during merging.
type sections struct {
	AddressGeneration  *AddressSection   `json:"_address_generation"`
	InvoiceGeneration  *InvoiceSection   `json:"_invoice_generation"`
	PaymentsPopulation *PaymentsSection  `json:"_payments_population"`
	NetworkSettings    *NetworkSection   `json:"_network_settings"`
	KeyImportOptions   *KeyImportSection `json:"_key_import_options"`
}

// File is a loaded run config with its shape resolved. Commands ask it for
// the one section they care about; the raw document is kept so legacy files
// can be decoded per-section on demand.
type File struct {
	Path  string
	Shape Shape

	raw json.RawMessage
	doc sections
}

var validate = validator.New()

// Load reads and shape-detects a run config file. A missing file and
// malformed JSON both fail the run before anything external is touched.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "configuration file not found: %s", path)
	}

	var doc sections
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrapf(err, "invalid JSON in configuration file: %s", path)
	}

	shape := ShapeLegacy
	if doc.AddressGeneration != nil || doc.InvoiceGeneration != nil || doc.PaymentsPopulation != nil {
		shape = ShapeUniversal
	}

	return &File{
		Path:  path,
		Shape: shape,
		raw:   data,
		doc:   doc,
	}, nil
}

// SectionPresence reports which generation sections the file carries. Legacy
// files carry none by definition.
func (f *File) SectionPresence() (addresses, invoices, payments bool) {
	return f.doc.AddressGeneration != nil, f.doc.InvoiceGeneration != nil, f.doc.PaymentsPopulation != nil
}

// Invoices returns the invoice generation section, validated. Legacy files
// decode the root document into the section shape.
func (f *File) Invoices() (*InvoiceSection, error) {
	section := &InvoiceSection{}

	if f.Shape == ShapeUniversal {
		if f.doc.InvoiceGeneration != nil {
			section = f.doc.InvoiceGeneration
		}
	} else {
		if err := json.Unmarshal(f.raw, section); err != nil {
			return nil, errors.Wrapf(err, "invalid invoice settings in %s", f.Path)
		}
	}

	if err := validate.Struct(section); err != nil {
		return nil, errors.Wrapf(err, "invalid invoice settings in %s", f.Path)
	}

	return section, nil
}

// Payments returns the payments population section, validated.
func (f *File) Payments() (*PaymentsSection, error) {
	section := &PaymentsSection{}

	if f.Shape == ShapeUniversal {
		if f.doc.PaymentsPopulation != nil {
			section = f.doc.PaymentsPopulation
		}
	} else {
		if err := json.Unmarshal(f.raw, section); err != nil {
			return nil, errors.Wrapf(err, "invalid payments settings in %s", f.Path)
		}
	}

	if err := validate.Struct(section); err != nil {
		return nil, errors.Wrapf(err, "invalid payments settings in %s", f.Path)
	}

	return section, nil
}

// Network returns the network settings section, validated. Every field is
// optional, so an absent section yields the zero section.
func (f *File) Network() (*NetworkSection, error) {
	network := &NetworkSection{}

	if f.Shape == ShapeUniversal {
		if f.doc.NetworkSettings != nil {
			network = f.doc.NetworkSettings
		}
	} else if err := json.Unmarshal(f.raw, network); err != nil {
		return nil, errors.Wrapf(err, "invalid network settings in %s", f.Path)
	}

	if err := validate.Struct(network); err != nil {
		return nil, errors.Wrapf(err, "invalid network settings in %s", f.Path)
	}

	return network, nil
}

// Addresses returns the address generation section plus the network and key
// import sections, validated together.
func (f *File) Addresses() (*AddressSection, *NetworkSection, *KeyImportSection, error) {
	addr := &AddressSection{}
	network := &NetworkSection{}
	keys := &KeyImportSection{}

	if f.Shape == ShapeUniversal {
		if f.doc.AddressGeneration != nil {
			addr = f.doc.AddressGeneration
		}
		if f.doc.NetworkSettings != nil {
			network = f.doc.NetworkSettings
		}
		if f.doc.KeyImportOptions != nil {
			keys = f.doc.KeyImportOptions
		}
	} else {
		for _, target := range []any{addr, network, keys} {
			if err := json.Unmarshal(f.raw, target); err != nil {
				return nil, nil, nil, errors.Wrapf(err, "invalid address settings in %s", f.Path)
			}
		}
	}

	for _, target := range []any{addr, network, keys} {
		if err := validate.Struct(target); err != nil {
			return nil, nil, nil, errors.Wrapf(err, "invalid address settings in %s", f.Path)
		}
	}

	return addr, network, keys, nil
}
