package plan

import "strings"

// ToolKind is the closed set of tools a task can target.
type ToolKind int

const (
	KindUnknown ToolKind = iota
	KindDocumentQA
	KindNews
	KindGeneralQA
	KindImageQA
	KindLawQA
)

// Kinds lists every dispatchable kind in canonical order.
var Kinds = []ToolKind{KindDocumentQA, KindNews, KindGeneralQA, KindImageQA, KindLawQA}

var kindNames = map[ToolKind]string{
	KindDocumentQA: "Document_qna",
	KindNews:       "News",
	KindGeneralQA:  "General_qna",
	KindImageQA:    "Image_qna",
	KindLawQA:      "Law_qna",
}

var kindAliases = map[string]ToolKind{
	"documentqna": KindDocumentQA,
	"documentqa":  KindDocumentQA,
	"docqna":      KindDocumentQA,
	"docqa":       KindDocumentQA,
	"document":    KindDocumentQA,
	"news":        KindNews,
	"newssearch":  KindNews,
	"financenews": KindNews,
	"generalqna":  KindGeneralQA,
	"generalqa":   KindGeneralQA,
	"general":     KindGeneralQA,
	"imageqna":    KindImageQA,
	"imageqa":     KindImageQA,
	"image":       KindImageQA,
	"lawqna":      KindLawQA,
	"lawqa":       KindLawQA,
	"law":         KindLawQA,
	"legal":       KindLawQA,
	"legalqna":    KindLawQA,
}

func (k ToolKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "Unknown"
}

func (k ToolKind) Valid() bool {
	_, ok := kindNames[k]
	return ok
}

// Attachment names the upload a kind cannot run without.
type Attachment string

const (
	AttachmentNone     Attachment = ""
	AttachmentDocument Attachment = "document"
	AttachmentImage    Attachment = "image"
)

func (k ToolKind) RequiredAttachment() Attachment {
	switch k {
	case KindDocumentQA:
		return AttachmentDocument
	case KindImageQA:
		return AttachmentImage
	default:
		return AttachmentNone
	}
}

// ParseToolKind maps a tool name emitted by the router model to a kind.
// Matching ignores case, spaces, dashes and underscores.
func ParseToolKind(name string) ToolKind {
	key := normalizeName(name)
	if key == "" {
		return KindUnknown
	}
	if k, ok := kindAliases[key]; ok {
		return k
	}
	return KindUnknown
}

func normalizeName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch r {
		case ' ', '_', '-', '.', '/':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (k ToolKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *ToolKind) UnmarshalText(text []byte) error {
	*k = ParseToolKind(string(text))
	return nil
}
