package tiering

// Feature is an opaque named product capability. The set of features and
// their required tiers is fixed at build time; changing it is a deploy.
type Feature string

const (
	// Capture: the free record-keeping core every clinic gets.
	FeaturePatientRecords Feature = "patient_records"
	FeatureAppointments   Feature = "appointments"
	FeatureClinicalNotes  Feature = "clinical_notes"
	FeatureFileUploads    Feature = "file_uploads"

	// Core: day-to-day clinic operations.
	FeatureCalendarSlots     Feature = "calendar_slots"
	FeatureQueueManagement   Feature = "queue_management"
	FeatureInvoicing         Feature = "invoicing"
	FeatureWhatsAppReminders Feature = "whatsapp_reminders"
	FeatureVitalsTracking    Feature = "vitals_tracking"

	// Plus: multi-doctor practices and automation.
	FeatureWhatsAppAPI       Feature = "whatsapp_api"
	FeatureMultiDoctor       Feature = "multi_doctor"
	FeatureInventory         Feature = "inventory"
	FeaturePatientPortal     Feature = "patient_portal"
	FeaturePaymentCollection Feature = "payment_collection"

	// Pro: reporting and integrations.
	FeatureAnalyticsDashboard Feature = "analytics_dashboard"
	FeatureCustomBranding     Feature = "custom_branding"
	FeatureReportExports      Feature = "report_exports"
	FeatureAPIAccess          Feature = "api_access"

	// Enterprise: chains and compliance.
	FeatureMultiBranch      Feature = "multi_branch"
	FeatureAuditLogs        Feature = "audit_logs"
	FeaturePrioritySupport  Feature = "priority_support"

	// Intelligence add-on: unlocked by the add-on flag, independent of tier.
	FeatureAIScribe            Feature = "ai_scribe"
	FeatureAIRxSuggestions     Feature = "ai_rx_suggestions"
	FeatureSmartInsights       Feature = "smart_insights"
	FeatureDocumentOCR         Feature = "document_ocr"
)

// requiredTier is the total map for base-ladder features. Every ladder
// feature has exactly one entry; intelligenceFeatures holds the rest.
var requiredTier = map[Feature]Tier{
	FeaturePatientRecords: TierCapture,
	FeatureAppointments:   TierCapture,
	FeatureClinicalNotes:  TierCapture,
	FeatureFileUploads:    TierCapture,

	FeatureCalendarSlots:     TierCore,
	FeatureQueueManagement:   TierCore,
	FeatureInvoicing:         TierCore,
	FeatureWhatsAppReminders: TierCore,
	FeatureVitalsTracking:    TierCore,

	FeatureWhatsAppAPI:       TierPlus,
	FeatureMultiDoctor:       TierPlus,
	FeatureInventory:         TierPlus,
	FeaturePatientPortal:     TierPlus,
	FeaturePaymentCollection: TierPlus,

	FeatureAnalyticsDashboard: TierPro,
	FeatureCustomBranding:     TierPro,
	FeatureReportExports:      TierPro,
	FeatureAPIAccess:          TierPro,

	FeatureMultiBranch:     TierEnterprise,
	FeatureAuditLogs:       TierEnterprise,
	FeaturePrioritySupport: TierEnterprise,
}

var intelligenceFeatures = map[Feature]struct{}{
	FeatureAIScribe:        {},
	FeatureAIRxSuggestions: {},
	FeatureSmartInsights:   {},
	FeatureDocumentOCR:     {},
}

// allFeatures lists every feature in a stable order (ladder features grouped
// by tier, then the intelligence set). Enabled() and the features API depend
// on this order being deterministic.
var allFeatures = []Feature{
	FeaturePatientRecords,
	FeatureAppointments,
	FeatureClinicalNotes,
	FeatureFileUploads,
	FeatureCalendarSlots,
	FeatureQueueManagement,
	FeatureInvoicing,
	FeatureWhatsAppReminders,
	FeatureVitalsTracking,
	FeatureWhatsAppAPI,
	FeatureMultiDoctor,
	FeatureInventory,
	FeaturePatientPortal,
	FeaturePaymentCollection,
	FeatureAnalyticsDashboard,
	FeatureCustomBranding,
	FeatureReportExports,
	FeatureAPIAccess,
	FeatureMultiBranch,
	FeatureAuditLogs,
	FeaturePrioritySupport,
	FeatureAIScribe,
	FeatureAIRxSuggestions,
	FeatureSmartInsights,
	FeatureDocumentOCR,
}

// Features returns every known feature.
func Features() []Feature {
	out := make([]Feature, len(allFeatures))
	copy(out, allFeatures)
	return out
}
