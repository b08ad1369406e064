package consent

import (
	"fmt"

	"github.com/prebid/consent-string/bitstring"
	"github.com/prebid/consent-string/bitutils"
	"github.com/prebid/consent-string/errortypes"
	"github.com/prebid/consent-string/metrics"
	"github.com/prebid/consent-string/versions"
)

// EncodeEditor writes the publisher section of r: the format version, the editor catalog version
// and the editor purposes. It is stored next to the consent string, not inside it.
func (c *Codec) EncodeEditor(r Record) (string, error) {
	labels := metrics.Labels{Operation: metrics.OperationEncodeEditor, Encoding: metrics.VendorEncodingNone, Status: metrics.StatusErr}

	bits, err := c.encodeEditorBits(r)
	if err == nil {
		var token string
		if token, err = bitstring.ToToken(bits); err == nil {
			labels.Status = metrics.StatusOK
			c.metricsEngine.RecordOperation(labels)
			c.metricsEngine.RecordTokenBits(labels, len(bits))
			return token, nil
		}
	}
	c.metricsEngine.RecordOperation(labels)
	return "", err
}

func (c *Codec) encodeEditorBits(r Record) (string, error) {
	cfg, err := c.config(r)
	if err != nil {
		return "", err
	}
	e := &encoder{cfg: cfg}
	for _, field := range cfg.EditorLayout() {
		if err := e.writeField(field, r); err != nil {
			return "", err
		}
	}
	for _, warning := range e.warnings {
		c.logger.Warnf("%v", warning)
	}
	return e.w.String(), e.w.Err()
}

// DecodeEditor reads a publisher section and returns r with its editor fields replaced.
// The section must carry the format version of r.
func (c *Codec) DecodeEditor(token string, r Record) (Record, error) {
	labels := metrics.Labels{Operation: metrics.OperationDecodeEditor, Encoding: metrics.VendorEncodingNone, Status: metrics.StatusOK}
	out, err := c.decodeEditor(token, r)
	if err != nil {
		labels.Status = metrics.StatusErr
	}
	c.metricsEngine.RecordOperation(labels)
	return out, err
}

func (c *Codec) decodeEditor(token string, r Record) (Record, error) {
	bits, err := bitstring.FromToken(token)
	if err != nil {
		return Record{}, &errortypes.DecodeFailure{Field: "token", Cause: err}
	}

	reader := bitutils.NewReader(bits)
	version, err := reader.ReadInt(versions.FormatVersionWidth)
	if err != nil {
		return Record{}, &errortypes.DecodeFailure{Field: string(versions.FieldVersion), Cause: err}
	}
	if version != r.FormatVersion() {
		return Record{}, &errortypes.DecodeFailure{
			Field: string(versions.FieldVersion),
			Cause: &errortypes.BadInput{Message: fmt.Sprintf("publisher section has format version %d but the record has %d", version, r.FormatVersion())},
		}
	}
	cfg, err := c.registry.Lookup(version)
	if err != nil {
		return Record{}, &errortypes.DecodeFailure{Field: string(versions.FieldVersion), Cause: err}
	}

	p := r.Params()
	for _, field := range cfg.EditorLayout() {
		if field == versions.FieldVersion {
			continue
		}
		if err := readField(reader, cfg, field, &p); err != nil {
			return Record{}, &errortypes.DecodeFailure{Field: string(field), Cause: err}
		}
	}
	return build(cfg, p)
}

// EncodeEditor writes the publisher section of r with the default codec.
func EncodeEditor(r Record) (string, error) {
	return defaultCodec.EncodeEditor(r)
}

// DecodeEditor reads a publisher section into r with the default codec.
func DecodeEditor(token string, r Record) (Record, error) {
	return defaultCodec.DecodeEditor(token, r)
}
