package keyboard_test

import (
	"strings"
	"testing"

	"github.com/Proton-105/bazaar-bot/internal/bot/keyboard"
	"github.com/Proton-105/bazaar-bot/internal/channel"
	"github.com/Proton-105/bazaar-bot/internal/testutil"
)

func TestButtons(t *testing.T) {
	markup, err := keyboard.Buttons([]channel.Button{
		{ID: "buy", Title: "Buy Now"},
		{ID: "next", Title: "Next Product"},
		{ID: "agent", Title: strings.Repeat("a", 30)},
	})
	testutil.AssertNoError(t, err)

	testutil.AssertEqual(t, 3, len(markup.InlineKeyboard))
	testutil.AssertEqual(t, "btn:buy", markup.InlineKeyboard[0][0].Data)
	testutil.AssertEqual(t, "Next Product", markup.InlineKeyboard[1][0].Text)
	testutil.AssertEqual(t, channel.MaxButtonTitle, len(markup.InlineKeyboard[2][0].Text))
}

func TestList(t *testing.T) {
	markup, err := keyboard.List([]channel.Row{
		{ID: "qty_1", Title: "1", Description: "Rs. 1,500"},
		{ID: "qty_2", Title: "2"},
	})
	testutil.AssertNoError(t, err)

	testutil.AssertEqual(t, 2, len(markup.InlineKeyboard))
	testutil.AssertEqual(t, "1 · Rs. 1,500", markup.InlineKeyboard[0][0].Text)
	testutil.AssertEqual(t, "row:qty_1", markup.InlineKeyboard[0][0].Data)
	testutil.AssertEqual(t, "2", markup.InlineKeyboard[1][0].Text)
}

func TestSelection(t *testing.T) {
	tests := []struct {
		name         string
		data         string
		wantModality channel.Modality
		wantID       string
		wantOK       bool
	}{
		{name: "button", data: "btn:cod", wantModality: channel.ModalityButton, wantID: "cod", wantOK: true},
		{name: "list row", data: "\frow:qty_5", wantModality: channel.ModalityList, wantID: "qty_5", wantOK: true},
		{name: "unknown kind", data: "nav:2"},
		{name: "missing id", data: "btn"},
		{name: "empty", data: ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			modality, id, ok := keyboard.Selection(tt.data)
			testutil.AssertEqual(t, tt.wantOK, ok)
			testutil.AssertEqual(t, tt.wantModality, modality)
			testutil.AssertEqual(t, tt.wantID, id)
		})
	}
}
