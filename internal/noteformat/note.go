package noteformat

import "encoding/json"

// SoapNote keeps the generated text together with its renderings. The
// renderings are derived at construction and cannot be set independently.
type SoapNote struct {
	raw       string
	html      string
	plainText string
}

func NewSoapNote(raw string) SoapNote {
	return SoapNote{
		raw:       raw,
		html:      FormatHTML(raw),
		plainText: FormatPlainText(raw),
	}
}

func (n SoapNote) Raw() string { return n.raw }

func (n SoapNote) FormattedHTML() string { return n.html }

func (n SoapNote) FormattedPlainText() string { return n.plainText }

type soapNoteJSON struct {
	Raw                string `json:"raw"`
	FormattedHTML      string `json:"formattedHtml"`
	FormattedPlainText string `json:"formattedPlainText"`
}

func (n SoapNote) MarshalJSON() ([]byte, error) {
	return json.Marshal(soapNoteJSON{
		Raw:                n.raw,
		FormattedHTML:      n.html,
		FormattedPlainText: n.plainText,
	})
}

// UnmarshalJSON only trusts the raw text and recomputes the renderings.
func (n *SoapNote) UnmarshalJSON(b []byte) error {
	var v soapNoteJSON
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*n = NewSoapNote(v.Raw)
	return nil
}
