package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/prebid/consent-string/consent"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
	"gopkg.in/yaml.v2"
)

type printer func(out io.Writer, value interface{}) error

func newPrinter(format string) (printer, error) {
	switch format {
	case "json":
		return printJSON, nil
	case "yaml":
		return printYAML, nil
	}
	return nil, fmt.Errorf("unknown output format %q, expected json or yaml", format)
}

func printJSON(out io.Writer, value interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}

func printYAML(out io.Writer, value interface{}) error {
	data, err := yaml.Marshal(value)
	if err != nil {
		return err
	}
	_, err = out.Write(data)
	return err
}

// encodedRecord is printed by encode and migrate.
type encodedRecord struct {
	ConsentString   string `json:"consentString" yaml:"consent_string"`
	PublisherString string `json:"publisherString,omitempty" yaml:"publisher_string,omitempty"`
}

// decodedRecord is printed by decode.
type decodedRecord struct {
	consent.Params `yaml:",inline"`

	LanguageName          string `json:"languageName,omitempty" yaml:"language_name,omitempty"`
	PurposeConsents       string `json:"purposeConsents" yaml:"purpose_consents"`
	EditorPurposeConsents string `json:"editorPurposeConsents" yaml:"editor_purpose_consents"`
	VendorConsents        string `json:"vendorConsents" yaml:"vendor_consents"`
}

func newDecodedRecord(r consent.Record) decodedRecord {
	return decodedRecord{
		Params:                r.Params(),
		LanguageName:          languageName(r.Language()),
		PurposeConsents:       r.PurposeConsents(),
		EditorPurposeConsents: r.EditorPurposeConsents(),
		VendorConsents:        r.VendorConsents(),
	}
}

// languageName is the English name of code, or empty when it is not a known ISO 639-1 code.
func languageName(code consent.Language) string {
	tag, err := language.Parse(code.String())
	if err != nil {
		return ""
	}
	return display.English.Languages().Name(tag)
}
