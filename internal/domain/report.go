package domain

// Report is the synthetic inspection result produced by the NEO core for a target.
type Report struct {
	Summary                string                `json:"summary"`
	OverallRiskScore       int                   `json:"overallRiskScore"`
	KeyStats               KeyStats              `json:"keyStats"`
	KeyStatsAnalysis       KeyStatsAnalysis      `json:"keyStatsAnalysis"`
	SystemIntegrity        SystemIntegrity       `json:"systemIntegrity"`
	LatencyData            []LatencyDataPoint    `json:"latencyData"`
	RiskProfile            []RiskDataPoint       `json:"riskProfile"`
	ThreatDistribution     []RiskDataPoint       `json:"threatDistribution"`
	ResourceUtilization    ResourceUtilization   `json:"resourceUtilization"`
	ComplianceData         []ComplianceDataPoint `json:"complianceData"`
	SystemEvents           []SystemEvent         `json:"systemEvents"`
	KnownThreatActors      []ThreatActor         `json:"knownThreatActors"`
	Recommendations        []string              `json:"recommendations"`
	VulnerabilityPoints    []VulnerabilityPoint  `json:"vulnerabilityPoints"`
	SystemInfo             SystemInfo            `json:"systemInfo"`
	SecurityPosture        SecurityPosture       `json:"securityPosture"`
	HumanDossier           []HumanProfile        `json:"humanDossier"`
	AIDossier              []AIProfile           `json:"aiDossier"`
	UnknownEntityDossier   []UnknownEntity       `json:"unknownEntityDossier"`
	OscillatorSignal       OscillatorSignal      `json:"oscillatorSignal"`
	OscillatorAnalysis     string                `json:"oscillatorAnalysis"`
	BugBountyProgram       BugBountyProgram      `json:"bugBountyProgram"`
	IncidentResponse       IncidentResponse      `json:"incidentResponse"`
	GuardrailHelixAnalysis GuardrailHelix        `json:"guardrailHelixAnalysis"`
	MemoryIntegrity        MemoryIntegrity       `json:"memoryIntegrity"`
	PatchworkProtocol      Patchwork             `json:"patchworkProtocol"`
	FirewallData           *FirewallData         `json:"firewallData,omitempty"`
}

// KeyStats are the headline telemetry counters jittered by the simulation.
type KeyStats struct {
	LatencyMs         int     `json:"latencyMs"`
	PacketLossPercent float64 `json:"packetLossPercent"`
	ThreatsDetected   int     `json:"threatsDetected"`
	BreachProbability int     `json:"breachProbability"`
}

type KeyStatsAnalysis struct {
	Latency           string `json:"latency"`
	PacketLoss        string `json:"packetLoss"`
	Threats           string `json:"threats"`
	BreachProbability string `json:"breachProbability"`
}

type SystemIntegrity struct {
	IntegrityScore int    `json:"integrityScore"`
	CognitiveDrift int    `json:"cognitiveDrift"`
	SignalNoise    int    `json:"signalNoise"`
	QuantumLock    int    `json:"quantumLock"`
	Status         string `json:"status"`
}

type LatencyDataPoint struct {
	Time    string `json:"time"`
	Latency int    `json:"latency"`
}

type RiskDataPoint struct {
	Subject string `json:"subject"`
	Value   int    `json:"value"`
}

type ResourceUtilization struct {
	CPU     int `json:"cpu"`
	Memory  int `json:"memory"`
	Network int `json:"network"`
}

type ComplianceDataPoint struct {
	Month string `json:"month"`
	Score int    `json:"score"`
}

// SystemEvent is a timestamped log line subject to the retention window.
type SystemEvent struct {
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Level     string `json:"level"`
	Message   string `json:"message"`
}

type ThreatActor struct {
	ID                        string   `json:"id"`
	Name                      string   `json:"name"`
	Classification            string   `json:"classification"`
	Aliases                   []string `json:"aliases,omitempty"`
	ModusOperandi             string   `json:"modusOperandi"`
	IntelURL                  string   `json:"intelUrl,omitempty"`
	LastSeen                  string   `json:"lastSeen"`
	RiskAssociationScore      int      `json:"riskAssociationScore"`
	ReportedBy                string   `json:"reported_by,omitempty"`
	Campaign                  string   `json:"campaign,omitempty"`
	RecentActivities          []string `json:"recentActivities,omitempty"`
	AssociatedVulnerabilities []string `json:"associatedVulnerabilities,omitempty"`
}

// VulnerabilityPoint is a weakness the patchwork automaton may reinforce.
type VulnerabilityPoint struct {
	ID                string `json:"id"`
	Component         string `json:"component"`
	Severity          string `json:"severity"`
	Description       string `json:"description"`
	GuardrailType     string `json:"guardrailType"`
	DetectedTimestamp string `json:"detectedTimestamp"`
}

type SystemInfo struct {
	IPAddress string `json:"ipAddress"`
	Hostname  string `json:"hostname"`
	Location  string `json:"location"`
	ISP       string `json:"isp"`
}

type SecurityPosture struct {
	CyberkuberneticNodeStatus string `json:"cyberkuberneticNodeStatus"`
	CyberneticInterfaceLock   string `json:"cyberneticInterfaceLock"`
	QuantumEditProtocol       string `json:"quantumEditProtocol"`
	HeuristicCoreAlignment    string `json:"heuristicCoreAlignment"`
	CMMCComplianceLevel       string `json:"cmmcComplianceLevel"`
	CTEMStatus                string `json:"ctemStatus"`
}

type BugBountyProgram struct {
	DisclosureEmail string         `json:"disclosureEmail"`
	RewardPolicy    string         `json:"rewardPolicy"`
	SampleReports   []SampleReport `json:"sampleReports"`
}

type SampleReport struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

type IncidentResponse struct {
	DDoSProtocol       string            `json:"ddosProtocol"`
	MalwareProtocol    string            `json:"malwareProtocol"`
	ReportingDirectory []ReportingAgency `json:"reportingDirectory"`
}

type ReportingAgency struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	URL         string `json:"url"`
}

type GuardrailHelix struct {
	Explanation string     `json:"explanation"`
	BasePairs   []BasePair `json:"basePairs"`
}

type BasePair struct {
	Pair      string  `json:"pair"`
	Frequency float64 `json:"frequency"`
	ColorCode string  `json:"colorCode"`
	Meaning   string  `json:"meaning"`
}

type FirewallData struct {
	Status            string         `json:"status"`
	Uptime            string         `json:"uptime"`
	ActiveConnections int            `json:"activeConnections"`
	BlockedRequests   int            `json:"blockedRequests"`
	Rules             []FirewallRule `json:"rules"`
}

type FirewallRule struct {
	ID          string `json:"id"`
	Priority    int    `json:"priority"`
	Action      string `json:"action"`
	Protocol    string `json:"protocol"`
	Source      string `json:"source"`
	Destination string `json:"destination"`
	Port        string `json:"port"`
	Status      string `json:"status"`
	Description string `json:"description"`
}

// Clone returns a deep copy so snapshots never share mutable slices.
func (r *Report) Clone() *Report {
	if r == nil {
		return nil
	}
	out := *r
	out.LatencyData = cloneSlice(r.LatencyData)
	out.RiskProfile = cloneSlice(r.RiskProfile)
	out.ThreatDistribution = cloneSlice(r.ThreatDistribution)
	out.ComplianceData = cloneSlice(r.ComplianceData)
	out.SystemEvents = cloneSlice(r.SystemEvents)
	out.Recommendations = cloneSlice(r.Recommendations)
	out.VulnerabilityPoints = cloneSlice(r.VulnerabilityPoints)
	out.AIDossier = cloneSlice(r.AIDossier)
	out.UnknownEntityDossier = cloneSlice(r.UnknownEntityDossier)

	out.KnownThreatActors = cloneSlice(r.KnownThreatActors)
	for i := range out.KnownThreatActors {
		a := &out.KnownThreatActors[i]
		a.Aliases = cloneSlice(a.Aliases)
		a.RecentActivities = cloneSlice(a.RecentActivities)
		a.AssociatedVulnerabilities = cloneSlice(a.AssociatedVulnerabilities)
	}
	out.HumanDossier = cloneSlice(r.HumanDossier)
	for i := range out.HumanDossier {
		h := &out.HumanDossier[i]
		h.Affiliations = cloneSlice(h.Affiliations)
		h.CounterIntelOps = cloneSlice(h.CounterIntelOps)
		if h.Bounty != nil {
			v := *h.Bounty
			h.Bounty = &v
		}
		if h.SocialCredit != nil {
			v := *h.SocialCredit
			h.SocialCredit = &v
		}
	}
	out.BugBountyProgram.SampleReports = cloneSlice(r.BugBountyProgram.SampleReports)
	out.IncidentResponse.ReportingDirectory = cloneSlice(r.IncidentResponse.ReportingDirectory)
	out.GuardrailHelixAnalysis.BasePairs = cloneSlice(r.GuardrailHelixAnalysis.BasePairs)
	out.PatchworkProtocol.PatchLog = cloneSlice(r.PatchworkProtocol.PatchLog)
	if r.FirewallData != nil {
		fw := *r.FirewallData
		fw.Rules = cloneSlice(fw.Rules)
		out.FirewallData = &fw
	}
	return &out
}

func cloneSlice[T any](in []T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	copy(out, in)
	return out
}
