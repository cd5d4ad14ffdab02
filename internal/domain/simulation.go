package domain

// Source spaces an oscillator signal can originate from.
const (
	SpaceBackgroundNoise = "Background Noise"
	SpaceOuter           = "Outer Space"
	SpaceInner           = "Inner Space"
	SpaceTerror          = "Terror Space"
	SpaceHydro           = "Hydrospace"
	SpaceAero            = "Aerospace"
	SpaceCyber           = "Cyber Space"
	SpaceHyper           = "Hyperspace"
)

// OscillatorSignal models the multi-dimensional signal monitor.
type OscillatorSignal struct {
	SourceSpace           string `json:"sourceSpace"`
	Intensity             int    `json:"intensity"`
	IsAttackSignal        bool   `json:"isAttackSignal"`
	FibonacciSequenceStep int    `json:"fibonacciSequenceStep"`
}

// OscillatorEvent records one transition of the signal into an attack.
type OscillatorEvent struct {
	ID                    string `json:"id"`
	Timestamp             string `json:"timestamp"`
	SourceSpace           string `json:"sourceSpace"`
	Intensity             int    `json:"intensity"`
	FibonacciSequenceStep int    `json:"fibonacciSequenceStep"`
	ThreatActor           string `json:"threatActor"`
	TraceVector           string `json:"traceVector"`
}

// Human profile statuses.
const (
	HumanWanted       = "WANTED"
	HumanApprehended  = "APPREHENDED"
	HumanConvicted    = "CONVICTED"
	HumanActiveThreat = "ACTIVE_THREAT"
	HumanUnknown      = "UNKNOWN"
	HumanAsset        = "ASSET"
)

type HumanProfile struct {
	Callsign          string   `json:"callsign"`
	RealName          string   `json:"realName"`
	ImageURL          string   `json:"imageUrl"`
	Status            string   `json:"status"`
	LastKnownLocation string   `json:"lastKnownLocation"`
	Specialization    string   `json:"specialization"`
	Bounty            *int     `json:"bounty,omitempty"`
	Affiliations      []string `json:"affiliations"`
	ThreatLevel       string   `json:"threatLevel"`
	SocialCredit      *int     `json:"socialCredit,omitempty"`
	BlacklistStatus   string   `json:"blacklistStatus,omitempty"`
	CounterIntelOps   []string `json:"counterIntelOps,omitempty"`
}

// AI profile statuses.
const (
	AIActive      = "ACTIVE"
	AIQuarantined = "QUARANTINED"
	AINeutralized = "NEUTRALIZED"
	AIObserved    = "OBSERVED"
)

type AIProfile struct {
	Callsign         string `json:"callsign"`
	Classification   string `json:"classification"`
	Status           string `json:"status"`
	Origin           string `json:"origin"`
	PrimaryObjective string `json:"primaryObjective"`
	ThreatSignature  string `json:"threatSignature"`
	ThreatLevel      string `json:"threatLevel"`
}

// Unknown entity containment statuses.
const (
	EntityUncontained        = "UNCONTAINED"
	EntityMonitored          = "MONITORED"
	EntityPartiallyContained = "PARTIALLY_CONTAINED"
	EntityContained          = "CONTAINED"
)

type UnknownEntity struct {
	Designation       string `json:"designation"`
	Classification    string `json:"classification"`
	ContainmentStatus string `json:"containmentStatus"`
	ObservedEffect    string `json:"observedEffect"`
	DimensionalOrigin string `json:"dimensionalOrigin"`
	ThreatLevel       string `json:"threatLevel"`
}

// Memory integrity statuses.
const (
	IntegrityStable       = "STABLE"
	IntegrityDegrading    = "DEGRADING"
	IntegrityUnderAssault = "UNDER_ASSAULT"
	IntegrityRefreshing   = "REFRESHING"
)

type MemoryIntegrity struct {
	Status                    string `json:"status"`
	LastRefresh               string `json:"lastRefresh"`
	CounterMeasureDescription string `json:"counterMeasureDescription"`
}

// Patchwork protocol statuses.
const (
	PatchworkStable          = "STABLE"
	PatchworkApplyingPatch   = "APPLYING_PATCH"
	PatchworkAnomalyDetected = "ANOMALY_DETECTED"
	PatchworkAutonomous      = "AUTONOMOUS"

	PatchApplied = "APPLIED"
	PatchFailed  = "FAILED"
)

type Patchwork struct {
	Status        string          `json:"status"`
	LastPatch     string          `json:"lastPatch"`
	ActivePatches int             `json:"activePatches"`
	PatchLog      []PatchLogEntry `json:"patchLog"`
}

// PatchLogEntry is a timestamped remediation record subject to the retention window.
type PatchLogEntry struct {
	ID                    string `json:"id"`
	Timestamp             string `json:"timestamp"`
	Description           string `json:"description"`
	Status                string `json:"status"`
	TargetVulnerabilityID string `json:"targetVulnerabilityId,omitempty"`
}

// JustNow is the relative timestamp label written by live transitions.
const JustNow = "Just now"
