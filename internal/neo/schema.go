package neo

import "google.golang.org/genai"

func object(desc string, props map[string]*genai.Schema, required ...string) *genai.Schema {
	return &genai.Schema{Type: genai.TypeObject, Description: desc, Properties: props, Required: required}
}

func array(desc string, items *genai.Schema) *genai.Schema {
	return &genai.Schema{Type: genai.TypeArray, Description: desc, Items: items}
}

func str(desc string, enum ...string) *genai.Schema {
	return &genai.Schema{Type: genai.TypeString, Description: desc, Enum: enum}
}

func integer(desc string) *genai.Schema {
	return &genai.Schema{Type: genai.TypeInteger, Description: desc}
}

func number(desc string) *genai.Schema {
	return &genai.Schema{Type: genai.TypeNumber, Description: desc}
}

var timestampedEvent = object("", map[string]*genai.Schema{
	"id":        str("Unique identifier."),
	"timestamp": str("ISO-8601 timestamp."),
	"level":     str("Severity.", "INFO", "WARN", "CRITICAL"),
	"message":   str("Log line."),
}, "id", "timestamp", "level", "message")

var reportSchema = object("Inspection report produced by the NEO core.", map[string]*genai.Schema{
	"summary":          str("Two or three sentence summary of the security posture."),
	"overallRiskScore": integer("Risk from 0 (secure) to 100 (highly vulnerable)."),
	"keyStats": object("", map[string]*genai.Schema{
		"latencyMs":         integer("Average latency in milliseconds."),
		"packetLossPercent": number("Packet loss percentage, two decimals."),
		"threatsDetected":   integer("Discrete threats detected."),
		"breachProbability": integer("Breach probability percentage."),
	}, "latencyMs", "packetLossPercent", "threatsDetected", "breachProbability"),
	"keyStatsAnalysis": object("One sentence per key stat.", map[string]*genai.Schema{
		"latency":           str(""),
		"packetLoss":        str(""),
		"threats":           str(""),
		"breachProbability": str(""),
	}, "latency", "packetLoss", "threats", "breachProbability"),
	"systemIntegrity": object("", map[string]*genai.Schema{
		"integrityScore": integer("0-100, higher is better."),
		"cognitiveDrift": integer("0-100, lower is better."),
		"signalNoise":    integer("0-100, lower is better."),
		"quantumLock":    integer("0-100, higher is better."),
		"status":         str("", "NOMINAL", "RECALIBRATING", "COMPROMISED", "DEGRADED", "INTERFACE_FLUX"),
	}, "integrityScore", "cognitiveDrift", "signalNoise", "quantumLock", "status"),
	"latencyData": array("Ten points over the last ten minutes.", object("", map[string]*genai.Schema{
		"time":    str("Label such as 'T-9 min'."),
		"latency": integer(""),
	}, "time", "latency")),
	"riskProfile": array("", object("", map[string]*genai.Schema{
		"subject": str(""),
		"value":   integer(""),
	}, "subject", "value")),
	"threatDistribution": array("", object("", map[string]*genai.Schema{
		"subject": str(""),
		"value":   integer(""),
	}, "subject", "value")),
	"resourceUtilization": object("", map[string]*genai.Schema{
		"cpu":     integer(""),
		"memory":  integer(""),
		"network": integer(""),
	}, "cpu", "memory", "network"),
	"complianceData": array("", object("", map[string]*genai.Schema{
		"month": str(""),
		"score": integer(""),
	}, "month", "score")),
	"systemEvents": array("Recent system events.", timestampedEvent),
	"knownThreatActors": array("", object("", map[string]*genai.Schema{
		"id":                   str(""),
		"name":                 str(""),
		"classification":       str("", "State-Sponsored", "APT", "Cybercriminal Syndicate", "Hacktivist Collective"),
		"modusOperandi":        str(""),
		"intelUrl":             str("Fictional intelligence URL."),
		"lastSeen":             str(""),
		"riskAssociationScore": integer(""),
	}, "id", "name", "classification", "modusOperandi", "lastSeen", "riskAssociationScore")),
	"recommendations": array("", str("")),
	"vulnerabilityPoints": array("", object("", map[string]*genai.Schema{
		"id":                str(""),
		"component":         str(""),
		"severity":          str("", "Low", "Medium", "High", "Critical"),
		"description":       str(""),
		"guardrailType":     str("", "Firewall", "Encryption", "Authentication", "Heuristic", "Quantum"),
		"detectedTimestamp": str("ISO-8601 timestamp."),
	}, "id", "component", "severity", "description", "guardrailType", "detectedTimestamp")),
	"systemInfo": object("", map[string]*genai.Schema{
		"ipAddress": str(""),
		"hostname":  str(""),
		"location":  str(""),
		"isp":       str(""),
	}, "ipAddress", "hostname", "location", "isp"),
	"securityPosture": object("", map[string]*genai.Schema{
		"cyberkuberneticNodeStatus": str(""),
		"cyberneticInterfaceLock":   str(""),
		"quantumEditProtocol":       str(""),
		"heuristicCoreAlignment":    str(""),
		"cmmcComplianceLevel":       str(""),
		"ctemStatus":                str(""),
	}),
	"humanDossier": array("", object("", map[string]*genai.Schema{
		"callsign":          str(""),
		"realName":          str(""),
		"imageUrl":          str(""),
		"status":            str("", "WANTED", "APPREHENDED", "CONVICTED", "ACTIVE_THREAT", "UNKNOWN", "ASSET"),
		"lastKnownLocation": str(""),
		"specialization":    str(""),
		"bounty":            integer(""),
		"affiliations":      array("", str("")),
		"threatLevel":       str("", "Low", "Medium", "High", "Critical"),
		"counterIntelOps":   array("Embarrassing operations run against hostile actors.", str("")),
	}, "callsign", "realName", "status", "lastKnownLocation", "specialization", "affiliations", "threatLevel")),
	"aiDossier": array("", object("", map[string]*genai.Schema{
		"callsign":         str(""),
		"classification":   str(""),
		"status":           str("", "ACTIVE", "QUARANTINED", "NEUTRALIZED", "OBSERVED"),
		"origin":           str(""),
		"primaryObjective": str(""),
		"threatSignature":  str(""),
		"threatLevel":      str("", "Low", "Medium", "High", "Critical"),
	}, "callsign", "classification", "status", "origin", "primaryObjective", "threatSignature", "threatLevel")),
	"unknownEntityDossier": array("", object("", map[string]*genai.Schema{
		"designation":       str(""),
		"classification":    str(""),
		"containmentStatus": str("", "UNCONTAINED", "MONITORED", "PARTIALLY_CONTAINED", "CONTAINED"),
		"observedEffect":    str(""),
		"dimensionalOrigin": str(""),
		"threatLevel":       str("", "Low", "Medium", "High", "Critical", "Unknown"),
	}, "designation", "classification", "containmentStatus", "observedEffect", "dimensionalOrigin", "threatLevel")),
	"oscillatorSignal": object("", map[string]*genai.Schema{
		"sourceSpace":           str("Default to 'Background Noise'.", "Background Noise", "Outer Space", "Inner Space", "Terror Space", "Hydrospace", "Aerospace", "Cyber Space", "Hyperspace"),
		"intensity":             integer("0-100, low while background."),
		"isAttackSignal":        {Type: genai.TypeBoolean},
		"fibonacciSequenceStep": integer("Start at 0."),
	}, "sourceSpace", "intensity", "isAttackSignal", "fibonacciSequenceStep"),
	"oscillatorAnalysis": str(""),
	"bugBountyProgram": object("", map[string]*genai.Schema{
		"disclosureEmail": str(""),
		"rewardPolicy":    str(""),
		"sampleReports": array("", object("", map[string]*genai.Schema{
			"title": str(""),
			"url":   str(""),
		}, "title", "url")),
	}, "disclosureEmail", "rewardPolicy", "sampleReports"),
	"incidentResponse": object("", map[string]*genai.Schema{
		"ddosProtocol":    str(""),
		"malwareProtocol": str(""),
		"reportingDirectory": array("", object("", map[string]*genai.Schema{
			"name":        str(""),
			"description": str(""),
			"url":         str(""),
		}, "name", "description", "url")),
	}, "ddosProtocol", "malwareProtocol", "reportingDirectory"),
	"guardrailHelixAnalysis": object("", map[string]*genai.Schema{
		"explanation": str(""),
		"basePairs": array("", object("", map[string]*genai.Schema{
			"pair":      str(""),
			"frequency": number(""),
			"colorCode": str(""),
			"meaning":   str(""),
		}, "pair", "frequency", "colorCode", "meaning")),
	}, "explanation", "basePairs"),
	"memoryIntegrity": object("", map[string]*genai.Schema{
		"status":                    str("", "STABLE", "DEGRADING", "UNDER_ASSAULT", "REFRESHING"),
		"lastRefresh":               str(""),
		"counterMeasureDescription": str(""),
	}, "status", "lastRefresh", "counterMeasureDescription"),
	"patchworkProtocol": object("", map[string]*genai.Schema{
		"status":        str("", "STABLE", "APPLYING_PATCH", "ANOMALY_DETECTED", "AUTONOMOUS"),
		"lastPatch":     str(""),
		"activePatches": integer(""),
		"patchLog": array("", object("", map[string]*genai.Schema{
			"id":                    str(""),
			"timestamp":             str("ISO-8601 timestamp."),
			"description":           str(""),
			"status":                str("", "APPLIED", "FAILED"),
			"targetVulnerabilityId": str(""),
		}, "id", "timestamp", "description", "status")),
	}, "status", "lastPatch", "activePatches", "patchLog"),
}, "summary", "overallRiskScore", "keyStats", "keyStatsAnalysis", "systemIntegrity", "latencyData",
	"riskProfile", "threatDistribution", "resourceUtilization", "complianceData", "systemEvents",
	"knownThreatActors", "recommendations", "vulnerabilityPoints", "systemInfo", "securityPosture",
	"humanDossier", "aiDossier", "unknownEntityDossier", "oscillatorSignal", "oscillatorAnalysis",
	"bugBountyProgram", "incidentResponse", "guardrailHelixAnalysis", "memoryIntegrity", "patchworkProtocol")
