package evaluator

// Status is the verdict of one evaluation.
type Status int

const (
	// StatusIndeterminate means no verdict could be reached: the target was
	// unusable or the certificate could not be obtained.
	StatusIndeterminate Status = iota
	// StatusEV means the certificate asserts a registered EV policy.
	StatusEV
	// StatusNotEV means a certificate was obtained and asserts no
	// registered EV policy.
	StatusNotEV
)

var statusNames = map[Status]string{
	StatusIndeterminate: "indeterminate",
	StatusEV:            "ev",
	StatusNotEV:         "notEV",
}

func (s Status) String() string {
	name, ok := statusNames[s]
	if !ok {
		return "unknown"
	}
	return name
}

// Reasons explain a Status. They form a closed set so that they can be used
// as metric labels.
const (
	ReasonRegisteredPolicy   = "registered EV policy"
	ReasonNoPolicyExtension  = "no certificatePolicies extension"
	ReasonEmptyPolicies      = "empty certificatePolicies"
	ReasonAnyPolicyOnly      = "anyPolicy only"
	ReasonNoRegisteredPolicy = "no registered EV policy"
	ReasonMalformedPolicies  = "malformed certificatePolicies"
	ReasonNoHostname         = "no hostname"
	ReasonInvalidPort        = "invalid port"
	ReasonHandshake          = "handshake error"
	ReasonConnection         = "connection error"
	ReasonInternal           = "internal error"
)

// Result is the outcome of evaluating one target. It is built once and not
// modified afterwards.
type Result struct {
	Target Target
	Status Status
	Reason string
	// Detail is human-readable text about a failure, suitable for operators.
	Detail string
	// MatchedOID is the registered policy that made the certificate EV.
	MatchedOID string
	// PolicyOIDs is every policy the certificate asserted, in order.
	PolicyOIDs []string
	// NonHTTPS is set when the target was not given as an https URL. It is
	// advisory only and never changes Status.
	NonHTTPS bool
	// Err is the categorized error behind an Indeterminate result.
	Err error
}
