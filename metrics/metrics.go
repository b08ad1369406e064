package metrics

// Operation is the codec operation being measured.
type Operation string

const (
	OperationEncode       Operation = "encode"
	OperationDecode       Operation = "decode"
	OperationEncodeEditor Operation = "encode_editor"
	OperationDecodeEditor Operation = "decode_editor"
)

// VendorEncoding : which representation the vendor field used
type VendorEncoding string

const (
	VendorEncodingBitfield VendorEncoding = "bitfield"
	VendorEncodingRange    VendorEncoding = "range"
	VendorEncodingNone     VendorEncoding = "none"
)

// Status : The outcome of the operation
type Status string

const (
	StatusOK  Status = "ok"
	StatusErr Status = "err"
)

// Labels defines the labels that can be attached to the metrics.
type Labels struct {
	Operation Operation
	Encoding  VendorEncoding
	Status    Status
}

// OperationTypes returns all possible values for Operation
func OperationTypes() []Operation {
	return []Operation{
		OperationEncode,
		OperationDecode,
		OperationEncodeEditor,
		OperationDecodeEditor,
	}
}

// VendorEncodingTypes returns all possible values for VendorEncoding
func VendorEncodingTypes() []VendorEncoding {
	return []VendorEncoding{
		VendorEncodingBitfield,
		VendorEncodingRange,
		VendorEncodingNone,
	}
}

// StatusTypes returns all possible values for Status
func StatusTypes() []Status {
	return []Status{
		StatusOK,
		StatusErr,
	}
}

// MetricsEngine is a generic interface to record codec metrics into the desired backend
type MetricsEngine interface {
	// RecordOperation counts one codec call.
	RecordOperation(labels Labels)
	// RecordTokenBits records the size of an encoded consent string before base64 padding.
	RecordTokenBits(labels Labels, bits int)
}

// NilMetricsEngine implements MetricsEngine and records nothing.
type NilMetricsEngine struct{}

func (me *NilMetricsEngine) RecordOperation(labels Labels) {
}

func (me *NilMetricsEngine) RecordTokenBits(labels Labels, bits int) {
}
