package domain

// Label is one of the six categories an email can be sorted into.
type Label string

const (
	LabelImportant Label = "important"
	LabelPromotion Label = "promotion"
	LabelSocial    Label = "social"
	LabelMarketing Label = "marketing"
	LabelSpam      Label = "spam"
	LabelGeneral   Label = "general"
)

var labels = []Label{
	LabelImportant,
	LabelPromotion,
	LabelSocial,
	LabelMarketing,
	LabelSpam,
	LabelGeneral,
}

// Labels returns the allowed labels in prompt order.
func Labels() []Label {
	out := make([]Label, len(labels))
	copy(out, labels)
	return out
}

// IsValid reports whether l is exactly one of the allowed labels.
func (l Label) IsValid() bool {
	for _, known := range labels {
		if l == known {
			return true
		}
	}
	return false
}

func (l Label) String() string {
	return string(l)
}

// Outcome records how a classification label was reached.
type Outcome string

const (
	// OutcomeAccepted means the model answered with an allowed label.
	OutcomeAccepted Outcome = "accepted"
	// OutcomeRejected means the model answered with something outside the allowed set.
	OutcomeRejected Outcome = "rejected"
	// OutcomeFailed means the model call itself failed.
	OutcomeFailed Outcome = "failed"
	// OutcomeSkipped means no model credential was available so no call was made.
	OutcomeSkipped Outcome = "skipped"
)

// Classification is the label plus the outcome that produced it.
type Classification struct {
	Label   Label
	Outcome Outcome
	// Raw is the unvalidated model answer, empty when no call succeeded.
	Raw string
}

// Fallback reports whether the label is the default rather than the model's answer.
func (c Classification) Fallback() bool {
	return c.Outcome != OutcomeAccepted
}
