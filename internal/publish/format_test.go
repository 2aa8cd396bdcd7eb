package publish

import (
	"strings"
	"testing"

	"github.com/realflats/relay/internal/deeplink"
	"github.com/realflats/relay/internal/model"
	"github.com/realflats/relay/internal/session"
)

var testLinks = LinkBuilder{BotUsername: "relay_test_bot"}

func testRequest() *model.Request {
	return &model.Request{
		ID:       "R007",
		AuthorID: "u-1",
		Status:   model.StatusActive,
		Attrs: model.Attributes{
			{Key: "district", Label: "District", Value: "Center"},
			{Key: "budget", Label: "Budget", Value: "1200"},
			{Key: "notes", Label: "Notes", Value: ""},
		},
	}
}

func TestPost_ActiveRequest(t *testing.T) {
	msg, err := Post(testRequest(), testLinks)
	if err != nil {
		t.Fatalf("Post: %v", err)
	}
	for _, want := range []string{"REQUEST #R007", "District: Center", "Budget: 1200", "Notes: —"} {
		if !strings.Contains(msg.Text, want) {
			t.Errorf("post text missing %q:\n%s", want, msg.Text)
		}
	}
	if strings.Contains(msg.Text, "u-1") {
		t.Error("post text leaks the author identity")
	}
	if len(msg.Controls) != 2 {
		t.Fatalf("got %d controls, want 2", len(msg.Controls))
	}

	// The offer control must carry a decodable offer grant for this request.
	offer := msg.Controls[0]
	payload := offer.URL[strings.LastIndex(offer.URL, "=")+1:]
	grant, err := deeplink.Decode(payload)
	if err != nil {
		t.Fatalf("decoding offer link payload: %v", err)
	}
	if grant.Mode != model.ModeOffer || grant.RequestID != "R007" {
		t.Errorf("offer link decoded to %+v", grant)
	}

	if got, want := msg.Controls[1].Action, "close|R007"; got != want {
		t.Errorf("close action = %q, want %q", got, want)
	}
}

func TestPost_ClosedRequestHasNoControls(t *testing.T) {
	req := testRequest()
	req.Status = model.StatusClosed

	msg, err := Post(req, testLinks)
	if err != nil {
		t.Fatalf("Post: %v", err)
	}
	if !strings.Contains(msg.Text, "CLOSED") {
		t.Errorf("closed post text missing status marker:\n%s", msg.Text)
	}
	if len(msg.Controls) != 0 {
		t.Errorf("closed post should carry no controls, got %d", len(msg.Controls))
	}
}

func TestOfferReceived_CarriesReplyGrant(t *testing.T) {
	key := model.SessionKey{RequestID: "R007", AuthorID: "u-1", AgentID: "a-9"}
	msg, err := OfferReceived(key, "two rooms near the park", testLinks)
	if err != nil {
		t.Fatalf("OfferReceived: %v", err)
	}
	if !strings.Contains(msg.Text, "two rooms near the park") {
		t.Errorf("offer text not forwarded:\n%s", msg.Text)
	}
	if strings.Contains(msg.Text, "a-9") {
		t.Error("offer text leaks the agent identity")
	}
	if len(msg.Controls) != 1 {
		t.Fatalf("got %d controls, want 1", len(msg.Controls))
	}

	payload := msg.Controls[0].URL[strings.LastIndex(msg.Controls[0].URL, "=")+1:]
	grant, err := deeplink.Decode(payload)
	if err != nil {
		t.Fatalf("decoding reply link payload: %v", err)
	}
	want := model.Grant{Mode: model.ModeReply, RequestID: "R007", CounterpartID: "a-9"}
	if grant != want {
		t.Errorf("reply grant = %+v, want %+v", grant, want)
	}
}

func TestRelayed_TagsSenderRole(t *testing.T) {
	key := model.SessionKey{RequestID: "R003", AuthorID: "u-1", AgentID: "a-1"}

	fromAgent := Relayed(key, model.RoleAgent, "still available?")
	if !strings.Contains(fromAgent.Text, "agent") || !strings.Contains(fromAgent.Text, "still available?") {
		t.Errorf("agent relay text: %q", fromAgent.Text)
	}
	fromAuthor := Relayed(key, model.RoleAuthor, "yes")
	if !strings.Contains(fromAuthor.Text, "author") {
		t.Errorf("author relay text: %q", fromAuthor.Text)
	}
	if strings.Contains(fromAgent.Text, "a-1") || strings.Contains(fromAuthor.Text, "u-1") {
		t.Error("relay envelope leaks sender identity")
	}
}

func TestDisambiguation_OneControlPerCandidate(t *testing.T) {
	candidates := []model.SessionKey{
		{RequestID: "R002", AuthorID: "u-1", AgentID: "a-7"},
		{RequestID: "R001", AuthorID: "u-1", AgentID: "a-3"},
	}
	msg := Disambiguation("u-1", candidates)
	if len(msg.Controls) != 2 {
		t.Fatalf("got %d controls, want 2", len(msg.Controls))
	}
	if got, want := msg.Controls[0].Action, "pick|R002|u-1|a-7"; got != want {
		t.Errorf("first pick action = %q, want %q", got, want)
	}
	if got, want := msg.Controls[1].Action, "pick|R001|u-1|a-3"; got != want {
		t.Errorf("second pick action = %q, want %q", got, want)
	}
	// Labels show the counterpart, not the sender.
	if !strings.Contains(msg.Controls[0].Label, "a-7") {
		t.Errorf("label should name the counterpart: %q", msg.Controls[0].Label)
	}
}

func TestLivenessPrompt_Actions(t *testing.T) {
	msg := LivenessPrompt(&model.Request{ID: "R010"})
	if len(msg.Controls) != 2 {
		t.Fatalf("got %d controls, want 2", len(msg.Controls))
	}
	if msg.Controls[0].Action != "keep|R010" || msg.Controls[1].Action != "drop|R010" {
		t.Errorf("liveness actions = %q, %q", msg.Controls[0].Action, msg.Controls[1].Action)
	}
}

func TestSessionEnded_Reasons(t *testing.T) {
	key := model.SessionKey{RequestID: "R004", AuthorID: "u-1", AgentID: "a-1"}
	for _, tc := range []struct {
		reason session.EndReason
		want   string
	}{
		{session.EndReasonExpired, "expired"},
		{session.EndReasonRequestClosed, "request closed"},
		{session.EndReasonLeft, "closed"},
	} {
		msg := SessionEnded(key, tc.reason)
		if !strings.Contains(msg.Text, tc.want) {
			t.Errorf("SessionEnded(%v) = %q, want substring %q", tc.reason, msg.Text, tc.want)
		}
	}
}

func TestLinkBuilder_RoundTrips(t *testing.T) {
	url, err := testLinks.ViewLink("R123")
	if err != nil {
		t.Fatalf("ViewLink: %v", err)
	}
	if !strings.HasPrefix(url, "https://t.me/relay_test_bot?start=") {
		t.Errorf("unexpected link shape: %q", url)
	}
	grant, err := deeplink.Decode(url[strings.LastIndex(url, "=")+1:])
	if err != nil {
		t.Fatalf("decoding view link: %v", err)
	}
	if grant.Mode != model.ModeView || grant.RequestID != "R123" {
		t.Errorf("view grant = %+v", grant)
	}
}
