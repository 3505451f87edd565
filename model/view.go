package model

// Embed colours.
const (
	ColorRegular = 0x3498db
	ColorError   = 0xe74c3c
)

// ButtonStyle is the visual style of a button.
type ButtonStyle int

const (
	StylePrimary ButtonStyle = iota + 1
	StyleSecondary
	StyleSuccess
	StyleDanger
)

// ComponentKind distinguishes buttons from select menus.
type ComponentKind int

const (
	ComponentButton ComponentKind = iota + 1
	ComponentSelect
)

// SelectOption is one entry of a select menu.
type SelectOption struct {
	Label   string
	Value   string
	Default bool
}

// Component is an interactive control attached to a message. CustomID carries
// everything needed to resume handling after a restart.
type Component struct {
	Kind        ComponentKind
	CustomID    string
	Label       string
	Emoji       string
	Style       ButtonStyle
	Disabled    bool
	Row         int
	Placeholder string
	Options     []SelectOption
}

// EmbedField is one name/value pair of a structured message body.
type EmbedField struct {
	Name   string
	Value  string
	Inline bool
}

// MessageView is the platform-independent body of a message.
type MessageView struct {
	Title       string
	Description string
	Color       int
	Fields      []EmbedField
	Components  []Component
}

// TextInput describes the single text field of a modal.
type TextInput struct {
	Label       string
	Placeholder string
	Default     string
	MaxLength   int
	Long        bool
	Required    bool
}

// ModalView is a modal prompt. Its CustomID is an encoded action that is
// delivered back when the user submits the modal.
type ModalView struct {
	CustomID string
	Title    string
	Input    TextInput
}

// ReplyKind selects how an interaction is answered.
type ReplyKind int

const (
	// ReplyNone acknowledges without visible change.
	ReplyNone ReplyKind = iota
	// ReplyUpdate edits the message the component is attached to.
	ReplyUpdate
	// ReplyModal opens a modal.
	ReplyModal
	// ReplyMessage sends a new message, ephemeral if requested.
	ReplyMessage
	// ReplyNotice sends a short ephemeral notice.
	ReplyNotice
)

// Reply is the core's answer to one interaction.
type Reply struct {
	Kind      ReplyKind
	View      *MessageView
	Modal     *ModalView
	Notice    string
	Ephemeral bool
}

// UpdateReply edits the originating message.
func UpdateReply(view MessageView) Reply {
	return Reply{Kind: ReplyUpdate, View: &view}
}

// ModalReply opens a modal.
func ModalReply(modal ModalView) Reply {
	return Reply{Kind: ReplyModal, Modal: &modal}
}

// MessageReply sends a new message.
func MessageReply(view MessageView, ephemeral bool) Reply {
	return Reply{Kind: ReplyMessage, View: &view, Ephemeral: ephemeral}
}

// NoticeReply sends an ephemeral error-coloured notice.
func NoticeReply(text string) Reply {
	return Reply{Kind: ReplyNotice, Notice: text, Ephemeral: true}
}

// InteractionInput carries the values submitted with an interaction: the
// selected options of a select menu or the text of a modal.
type InteractionInput struct {
	Values []string
	Text   string
}

// FirstValue returns the first selected value, or "".
func (in InteractionInput) FirstValue() string {
	if len(in.Values) == 0 {
		return ""
	}
	return in.Values[0]
}
