package discord

import (
	"regexp"
	"sort"

	"github.com/bwmarrin/discordgo"

	"github.com/pitabwire/irrbot/model"
)

// Platform limits.
const (
	maxRowComponents = 5
	maxRows          = 5
)

var snowflake = regexp.MustCompile(`^[0-9]{15,21}$`)

// Embed converts a view body to an embed. Views without any embed content
// yield nil.
func Embed(v model.MessageView) *discordgo.MessageEmbed {
	if v.Title == "" && v.Description == "" && len(v.Fields) == 0 {
		return nil
	}
	e := &discordgo.MessageEmbed{
		Title:       v.Title,
		Description: v.Description,
		Color:       v.Color,
	}
	for _, f := range v.Fields {
		e.Fields = append(e.Fields, &discordgo.MessageEmbedField{Name: f.Name, Value: f.Value, Inline: f.Inline})
	}
	return e
}

// Embeds wraps Embed for the slice-valued message fields.
func Embeds(v model.MessageView) []*discordgo.MessageEmbed {
	if e := Embed(v); e != nil {
		return []*discordgo.MessageEmbed{e}
	}
	return []*discordgo.MessageEmbed{}
}

// Components lays out view components in action rows by their Row. A select
// menu always occupies a row of its own.
func Components(cs []model.Component) []discordgo.MessageComponent {
	rows := map[int][]discordgo.MessageComponent{}
	var order []int
	add := func(row int, c discordgo.MessageComponent) {
		if _, ok := rows[row]; !ok {
			order = append(order, row)
		}
		rows[row] = append(rows[row], c)
	}

	for _, c := range cs {
		switch c.Kind {
		case model.ComponentSelect:
			add(c.Row, selectMenu(c))
		default:
			add(c.Row, button(c))
		}
	}
	sort.Ints(order)

	out := []discordgo.MessageComponent{}
	for _, row := range order {
		items := rows[row]
		for len(items) > 0 && len(out) < maxRows {
			n := min(len(items), maxRowComponents)
			out = append(out, discordgo.ActionsRow{Components: items[:n]})
			items = items[n:]
		}
	}
	return out
}

func button(c model.Component) discordgo.Button {
	b := discordgo.Button{
		CustomID: c.CustomID,
		Label:    c.Label,
		Style:    buttonStyle(c.Style),
		Disabled: c.Disabled,
	}
	if c.Emoji != "" {
		b.Emoji = componentEmoji(c.Emoji)
	}
	return b
}

func selectMenu(c model.Component) discordgo.SelectMenu {
	opts := make([]discordgo.SelectMenuOption, len(c.Options))
	for i, o := range c.Options {
		opts[i] = discordgo.SelectMenuOption{Label: o.Label, Value: o.Value, Default: o.Default}
	}
	return discordgo.SelectMenu{
		MenuType:    discordgo.StringSelectMenu,
		CustomID:    c.CustomID,
		Placeholder: c.Placeholder,
		Options:     opts,
		Disabled:    c.Disabled,
	}
}

// componentEmoji treats snowflakes as custom guild emoji and anything else as
// a unicode emoji.
func componentEmoji(s string) *discordgo.ComponentEmoji {
	if snowflake.MatchString(s) {
		return &discordgo.ComponentEmoji{ID: s}
	}
	return &discordgo.ComponentEmoji{Name: s}
}

func buttonStyle(s model.ButtonStyle) discordgo.ButtonStyle {
	switch s {
	case model.StyleSecondary:
		return discordgo.SecondaryButton
	case model.StyleSuccess:
		return discordgo.SuccessButton
	case model.StyleDanger:
		return discordgo.DangerButton
	default:
		return discordgo.PrimaryButton
	}
}

// modalInputID is the custom id of the single text input of every modal.
const modalInputID = "answer"

// Modal converts a modal prompt.
func Modal(m model.ModalView) *discordgo.InteractionResponseData {
	style := discordgo.TextInputShort
	if m.Input.Long {
		style = discordgo.TextInputParagraph
	}
	return &discordgo.InteractionResponseData{
		CustomID: m.CustomID,
		Title:    truncate(m.Title, 45),
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				discordgo.TextInput{
					CustomID:    modalInputID,
					Label:       truncate(m.Input.Label, 45),
					Style:       style,
					Placeholder: truncate(m.Input.Placeholder, 100),
					Value:       m.Input.Default,
					Required:    m.Input.Required,
					MaxLength:   m.Input.MaxLength,
				},
			}},
		},
	}
}

// Response converts a core reply to an interaction response.
func Response(r model.Reply) *discordgo.InteractionResponse {
	switch r.Kind {
	case model.ReplyUpdate:
		return &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseUpdateMessage,
			Data: messageData(*r.View, false),
		}
	case model.ReplyModal:
		return &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseModal,
			Data: Modal(*r.Modal),
		}
	case model.ReplyMessage:
		return &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: messageData(*r.View, r.Ephemeral),
		}
	case model.ReplyNotice:
		return Notice(r.Notice)
	default:
		return &discordgo.InteractionResponse{Type: discordgo.InteractionResponseDeferredMessageUpdate}
	}
}

// Notice is an ephemeral error-coloured message.
func Notice(text string) *discordgo.InteractionResponse {
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{{Description: text, Color: model.ColorError}},
			Flags:  discordgo.MessageFlagsEphemeral,
		},
	}
}

func messageData(v model.MessageView, ephemeral bool) *discordgo.InteractionResponseData {
	d := &discordgo.InteractionResponseData{
		Embeds:     Embeds(v),
		Components: Components(v.Components),
	}
	if ephemeral {
		d.Flags = discordgo.MessageFlagsEphemeral
	}
	return d
}

// Input extracts the submitted values of a component or modal interaction.
func Input(i *discordgo.InteractionCreate) (customID string, in model.InteractionInput) {
	switch i.Type {
	case discordgo.InteractionMessageComponent:
		data := i.MessageComponentData()
		return data.CustomID, model.InteractionInput{Values: data.Values}
	case discordgo.InteractionModalSubmit:
		data := i.ModalSubmitData()
		return data.CustomID, model.InteractionInput{Text: modalText(data.Components)}
	}
	return "", model.InteractionInput{}
}

func modalText(rows []discordgo.MessageComponent) string {
	for _, row := range rows {
		ar, ok := row.(*discordgo.ActionsRow)
		if !ok {
			continue
		}
		for _, c := range ar.Components {
			if ti, ok := c.(*discordgo.TextInput); ok && ti.CustomID == modalInputID {
				return ti.Value
			}
		}
	}
	return ""
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
