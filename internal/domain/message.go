package domain

import (
	"sort"
	"strconv"
	"strings"
)

// MessageCode identifies a structured message. A localization layer maps codes
// and params to text; the engine itself never produces user-facing prose.
type MessageCode string

const (
	MsgDoseLimitExceeded       MessageCode = "dose_limit_exceeded"
	MsgCumulativeLimitExceeded MessageCode = "cumulative_limit_exceeded"
	MsgSuggestedAction         MessageCode = "suggested_action"
	MsgConcentrationTooHigh    MessageCode = "concentration_too_high"
	MsgConcentrationTooLow     MessageCode = "concentration_too_low"
	MsgVolumeTooLow            MessageCode = "volume_below_minimum"
	MsgSolventIncompatible     MessageCode = "solvent_incompatible"
	MsgSolventDextroseOnly     MessageCode = "solvent_dextrose_5_required"
	MsgAUCRangeNotAllowed      MessageCode = "auc_range_not_allowed"
	MsgDoseTextUnparseable     MessageCode = "dose_text_unparseable"
	MsgDoseTextAmbiguous       MessageCode = "dose_text_ambiguous_separator"
	MsgRenalContraindicated    MessageCode = "renal_contraindicated"

	MsgInteraction            MessageCode = "drug_interaction"
	MsgContraindication       MessageCode = "contraindication"
	MsgBiomarkerMissing       MessageCode = "biomarker_not_tested"
	MsgBiomarkerMismatch      MessageCode = "biomarker_status_not_accepted"
	MsgBSACapConsideration    MessageCode = "bsa_cap_consideration"
	MsgRenalAdjustmentNeeded  MessageCode = "renal_adjustment_required"
	MsgHepaticAdjustment      MessageCode = "hepatic_adjustment_required"
	MsgCardiacMonitoring      MessageCode = "cardiac_monitoring_recommended"
	MsgCalculatedDoseFlag     MessageCode = "calculated_dose_flagged"
	MsgManualVerification     MessageCode = "manual_verification_required"
	MsgReviewRecommendation   MessageCode = "review_before_administration"
	MsgJustificationRequired  MessageCode = "document_clinical_justification"
	MsgDoNotAdminister        MessageCode = "do_not_administer"
	MsgOrderBiomarkerTest     MessageCode = "order_biomarker_test"
	MsgConsiderCapping        MessageCode = "consider_bsa_capping"
	MsgAdjustDose             MessageCode = "adjust_dose"
	MsgScheduleCardiacImaging MessageCode = "schedule_cardiac_imaging"
)

// Note codes used as the fallback suggested action.
const NoteGenericReview = "note.review_dose_against_protocol"

// Message is a structured, language-neutral message: a code, the drug it
// concerns and named values. Params values are already formatted.
type Message struct {
	Code   MessageCode       `json:"code"`
	Drug   string            `json:"drug,omitempty"`
	Params map[string]string `json:"params,omitempty"`
}

// NewMessage builds a message from alternating name/value pairs. Values may be
// strings, ints or float64s.
func NewMessage(code MessageCode, drug string, kv ...any) *Message {
	m := &Message{Code: code, Drug: drug}
	for i := 0; i+1 < len(kv); i += 2 {
		name, ok := kv[i].(string)
		if !ok {
			continue
		}
		if m.Params == nil {
			m.Params = make(map[string]string, len(kv)/2)
		}
		m.Params[name] = formatParam(kv[i+1])
	}
	return m
}

// Param returns a named value, or "" when absent.
func (m *Message) Param(name string) string {
	if m == nil {
		return ""
	}
	return m.Params[name]
}

// Clone returns a deep copy; a nil message stays nil.
func (m *Message) Clone() *Message {
	if m == nil {
		return nil
	}
	out := &Message{Code: m.Code, Drug: m.Drug}
	if m.Params != nil {
		out.Params = make(map[string]string, len(m.Params))
		for k, v := range m.Params {
			out.Params[k] = v
		}
	}
	return out
}

// String renders a canonical diagnostic line: code, drug, then sorted params.
func (m *Message) String() string {
	if m == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(string(m.Code))
	if m.Drug != "" {
		b.WriteString(" drug=")
		b.WriteString(m.Drug)
	}
	keys := make([]string, 0, len(m.Params))
	for k := range m.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteByte(' ')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(m.Params[k])
	}
	return b.String()
}

func formatParam(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case bool:
		return strconv.FormatBool(t)
	case []string:
		return strings.Join(t, ",")
	default:
		return ""
	}
}
