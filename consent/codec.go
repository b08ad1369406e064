package consent

import (
	"fmt"
	"time"

	"github.com/prebid/consent-string/bitstring"
	"github.com/prebid/consent-string/bitutils"
	"github.com/prebid/consent-string/errortypes"
	"github.com/prebid/consent-string/logger"
	"github.com/prebid/consent-string/metrics"
	"github.com/prebid/consent-string/vendorconsent"
	"github.com/prebid/consent-string/versions"
)

var defaultCodec = NewCodec(versions.Default())

// Codec turns records into consent strings and back, using the layouts of one registry.
// A Codec holds no mutable state and is safe for concurrent use.
type Codec struct {
	registry      versions.Registry
	metricsEngine metrics.MetricsEngine
	logger        logger.Logger
}

// CodecOption configures a Codec.
type CodecOption func(*Codec)

// WithMetrics records every encode and decode on engine.
func WithMetrics(engine metrics.MetricsEngine) CodecOption {
	return func(c *Codec) {
		if engine != nil {
			c.metricsEngine = engine
		}
	}
}

// WithLogger replaces the package logger.
func WithLogger(l logger.Logger) CodecOption {
	return func(c *Codec) {
		if l != nil {
			c.logger = l
		}
	}
}

func NewCodec(registry versions.Registry, opts ...CodecOption) *Codec {
	c := &Codec{
		registry:      registry,
		metricsEngine: &metrics.NilMetricsEngine{},
		logger:        logger.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewRecord validates p against the registry of the codec.
func (c *Codec) NewRecord(p Params) (Record, error) {
	cfg, err := c.registry.Lookup(p.FormatVersion)
	if err != nil {
		return Record{}, err
	}
	return build(cfg, p)
}

// Encode writes r with whichever vendor encoding is shorter.
func (c *Codec) Encode(r Record) (string, error) {
	return c.EncodeWith(r, vendorconsent.Automatic)
}

// EncodeWith writes r with the given vendor encoding.
//
// Values wider than their field are written in full, which shifts every later field. A warning is
// logged when that happens.
func (c *Codec) EncodeWith(r Record, enc vendorconsent.Encoding) (string, error) {
	token, warnings, err := c.EncodeWithWarnings(r, enc)
	for _, warning := range warnings {
		c.logger.Warnf("%v", warning)
	}
	return token, err
}

// EncodeWithWarnings is EncodeWith, returning the width overflow warnings instead of logging them.
func (c *Codec) EncodeWithWarnings(r Record, enc vendorconsent.Encoding) (string, []error, error) {
	labels := metrics.Labels{Operation: metrics.OperationEncode, Status: metrics.StatusErr}

	bits, used, warnings, err := c.encodeBits(r, enc)
	if err != nil {
		c.metricsEngine.RecordOperation(labels)
		return "", warnings, err
	}
	token, err := bitstring.ToToken(bits)
	if err != nil {
		c.metricsEngine.RecordOperation(labels)
		return "", warnings, err
	}

	labels.Encoding = vendorEncodingLabel(used)
	labels.Status = metrics.StatusOK
	c.metricsEngine.RecordOperation(labels)
	c.metricsEngine.RecordTokenBits(labels, len(bits))
	c.logger.Debugf("encoded %d bits with %s vendor encoding (requested %s)", len(bits), used, enc)
	return token, warnings, nil
}

func (c *Codec) encodeBits(r Record, enc vendorconsent.Encoding) (string, vendorconsent.Encoding, []error, error) {
	cfg, err := c.config(r)
	if err != nil {
		return "", enc, nil, err
	}

	e := &encoder{cfg: cfg}
	for _, field := range cfg.Layout() {
		if err := e.writeField(field, r); err != nil {
			return "", enc, e.warnings, err
		}
	}
	if err := e.w.Err(); err != nil {
		return "", enc, e.warnings, err
	}

	vendorBits, used, vendorWarnings, err := vendorconsent.EncodeWithWarnings(cfg, r.maxVendorID, r.allowedVendorIDs, enc)
	if err != nil {
		return "", used, e.warnings, err
	}
	e.checkWidth(versions.FieldMaxVendorID, r.maxVendorID)
	e.warnings = append(e.warnings, vendorWarnings...)
	e.w.WriteBits(vendorBits)
	return e.w.String(), used, e.warnings, e.w.Err()
}

// config resolves the configuration r was built with through the codec's own registry,
// so a codec never writes a version it does not know.
func (c *Codec) config(r Record) (versions.Config, error) {
	return c.registry.Lookup(r.FormatVersion())
}

// encoder writes the fixed width fields of one record.
type encoder struct {
	w        bitutils.Writer
	cfg      versions.Config
	warnings []error
}

// writeField covers every header field. The max vendor id belongs to the vendor field.
func (e *encoder) writeField(field versions.Field, r Record) error {
	width := e.cfg.Width(field)
	switch field {
	case versions.FieldVersion:
		e.writeInt(field, r.FormatVersion())
	case versions.FieldCreated:
		e.writeTime(field, r.created)
	case versions.FieldLastUpdated:
		e.writeTime(field, r.lastUpdated)
	case versions.FieldCmpID:
		e.writeInt(field, r.cmpID)
	case versions.FieldCmpVersion:
		e.writeInt(field, r.cmpVersion)
	case versions.FieldConsentScreen:
		e.writeInt(field, r.consentScreen)
	case versions.FieldLanguage:
		e.w.WriteLanguage(r.language.String(), e.cfg.Width(versions.FieldLanguageLetter), width)
	case versions.FieldEditorVersion:
		e.writeInt(field, r.editorVersion)
	case versions.FieldVendorListVersion:
		e.writeInt(field, r.vendorListVersion)
	case versions.FieldEditorPurposes:
		e.w.WriteBits(dense(r.editorPurposeIDs, width))
	case versions.FieldPurposes:
		e.w.WriteBits(dense(r.allowedPurposeIDs, width))
	default:
		return fmt.Errorf("unsupported layout field %s", field)
	}
	return nil
}

func (e *encoder) writeInt(field versions.Field, value int) {
	e.checkWidth(field, value)
	e.w.WriteInt(value, e.cfg.Width(field))
}

func (e *encoder) writeTime(field versions.Field, value time.Time) {
	e.checkWidth(field, bitutils.ToDeciseconds(value))
	e.w.WriteTime(value, e.cfg.Width(field))
}

func (e *encoder) checkWidth(field versions.Field, value int) {
	width := e.cfg.Width(field)
	if value < 0 || bitutils.Fits(value, width) {
		return
	}
	e.warnings = append(e.warnings, &errortypes.Warning{
		Message:     fmt.Sprintf("%s value %d does not fit %d bits; later fields will be misaligned", field, value, width),
		WarningCode: errortypes.WidthOverflowWarningCode,
	})
}

// Decode parses a consent string. Every failure is a *errortypes.DecodeFailure and no record is returned.
func (c *Codec) Decode(token string) (Record, error) {
	r, used, err := c.decode(token)
	labels := metrics.Labels{Operation: metrics.OperationDecode, Status: metrics.StatusOK, Encoding: vendorEncodingLabel(used)}
	if err != nil {
		labels.Status = metrics.StatusErr
		labels.Encoding = metrics.VendorEncodingNone
	}
	c.metricsEngine.RecordOperation(labels)
	if err != nil {
		c.logger.Debugf("rejected consent string %q: %v", token, err)
		return Record{}, err
	}
	return r, nil
}

func (c *Codec) decode(token string) (Record, vendorconsent.Encoding, error) {
	bits, err := bitstring.FromToken(token)
	if err != nil {
		return Record{}, vendorconsent.Automatic, &errortypes.DecodeFailure{Field: "token", Cause: err}
	}

	reader := bitutils.NewReader(bits)
	version, err := reader.ReadInt(versions.FormatVersionWidth)
	if err != nil {
		return Record{}, vendorconsent.Automatic, &errortypes.DecodeFailure{Field: string(versions.FieldVersion), Cause: err}
	}
	cfg, err := c.registry.Lookup(version)
	if err != nil {
		return Record{}, vendorconsent.Automatic, &errortypes.DecodeFailure{Field: string(versions.FieldVersion), Cause: err}
	}

	p := Params{FormatVersion: version}
	for _, field := range cfg.Layout() {
		if field == versions.FieldVersion {
			continue
		}
		if err := readField(reader, cfg, field, &p); err != nil {
			return Record{}, vendorconsent.Automatic, &errortypes.DecodeFailure{Field: string(field), Cause: err}
		}
	}

	section, err := vendorconsent.Decode(cfg, reader)
	if err != nil {
		return Record{}, vendorconsent.Automatic, &errortypes.DecodeFailure{Field: "vendorConsents", Cause: err}
	}
	p.MaxVendorID = section.MaxVendorID
	p.AllowedVendorIDs = section.AllowedIDs

	r, err := build(cfg, p)
	if err != nil {
		return Record{}, section.Encoding, &errortypes.DecodeFailure{Field: "record", Cause: err}
	}
	return r, section.Encoding, nil
}

func readField(reader *bitutils.Reader, cfg versions.Config, field versions.Field, p *Params) error {
	width := cfg.Width(field)
	var err error
	switch field {
	case versions.FieldCreated:
		p.Created, err = reader.ReadTime(width)
	case versions.FieldLastUpdated:
		p.LastUpdated, err = reader.ReadTime(width)
	case versions.FieldCmpID:
		p.CmpID, err = reader.ReadInt(width)
	case versions.FieldCmpVersion:
		p.CmpVersion, err = reader.ReadInt(width)
	case versions.FieldConsentScreen:
		p.ConsentScreen, err = reader.ReadInt(width)
	case versions.FieldLanguage:
		p.Language, err = reader.ReadLanguage(cfg.Width(versions.FieldLanguageLetter), width)
	case versions.FieldEditorVersion:
		p.EditorVersion, err = reader.ReadInt(width)
	case versions.FieldVendorListVersion:
		p.VendorListVersion, err = reader.ReadInt(width)
	case versions.FieldEditorPurposes:
		var bits string
		if bits, err = reader.Next(width); err == nil {
			p.EditorPurposeIDs = parseDense(bits)
		}
	case versions.FieldPurposes:
		var bits string
		if bits, err = reader.Next(width); err == nil {
			p.AllowedPurposeIDs = parseDense(bits)
		}
	default:
		err = fmt.Errorf("unsupported layout field %s", field)
	}
	return err
}

func vendorEncodingLabel(enc vendorconsent.Encoding) metrics.VendorEncoding {
	switch enc {
	case vendorconsent.Bitfield:
		return metrics.VendorEncodingBitfield
	case vendorconsent.Range:
		return metrics.VendorEncodingRange
	}
	return metrics.VendorEncodingNone
}

// Encode writes r with the default codec.
func Encode(r Record) (string, error) {
	return defaultCodec.Encode(r)
}

// EncodeWith writes r with the default codec and the given vendor encoding.
func EncodeWith(r Record, enc vendorconsent.Encoding) (string, error) {
	return defaultCodec.EncodeWith(r, enc)
}

// Decode parses a consent string with the default codec.
func Decode(token string) (Record, error) {
	return defaultCodec.Decode(token)
}
