package models

// InboundMessage is one customer turn, as normalized by a webhook parser.
// Immutable after construction; never persisted directly.
type InboundMessage struct {
	FromNumber string `json:"from_number"` // raw, as received
	ToNumber   string `json:"to_number"`   // raw, as received
	Body       string `json:"body"`
	IsGroup    bool   `json:"is_group"`

	Provider  string `json:"provider"`             // name of the parser that produced this message
	MessageID string `json:"message_id,omitempty"` // provider message id, used for dedupe when present
}

// OutcomeKind tags the terminal state of the response pipeline.
type OutcomeKind string

const (
	OutcomeTemplateSent  OutcomeKind = "template_sent"
	OutcomeKnowledgeSent OutcomeKind = "knowledge_sent"
	OutcomeGeneratedSent OutcomeKind = "generated_sent"
	OutcomeIgnored       OutcomeKind = "ignored"
)

// ResolutionOutcome is the tagged result of running the pipeline for one
// inbound message.
type ResolutionOutcome struct {
	Kind     OutcomeKind `json:"kind"`
	Body     string      `json:"body,omitempty"`
	ImageURL string      `json:"image_url,omitempty"`
	Reason   string      `json:"reason,omitempty"` // set when Kind is OutcomeIgnored
}

func TemplateSent(body, imageURL string) ResolutionOutcome {
	return ResolutionOutcome{Kind: OutcomeTemplateSent, Body: body, ImageURL: imageURL}
}

func KnowledgeSent(body, imageURL string) ResolutionOutcome {
	return ResolutionOutcome{Kind: OutcomeKnowledgeSent, Body: body, ImageURL: imageURL}
}

func GeneratedSent(body string) ResolutionOutcome {
	return ResolutionOutcome{Kind: OutcomeGeneratedSent, Body: body}
}

func Ignored(reason string) ResolutionOutcome {
	return ResolutionOutcome{Kind: OutcomeIgnored, Reason: reason}
}

const (
	IgnoredReasonGroup        = "group"
	IgnoredReasonUnrecognized = "unrecognized_payload"
	IgnoredReasonDuplicate    = "duplicate"
)
