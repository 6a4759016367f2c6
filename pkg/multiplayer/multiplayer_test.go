package multiplayer

import (
	"fmt"
	"testing"
)

func validRequest() PhaseRequest {
	return PhaseRequest{
		RoomID:      "room-1",
		StationName: "혜화",
		LineNumber:  4,
		Phase:       2,
		Participants: []Participant{
			{CharacterName: "지민", HP: 80, Sanity: 70},
		},
	}
}

func TestPhaseRequestValidate(t *testing.T) {
	valid := validRequest()
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid request rejected: %v", err)
	}

	req := validRequest()
	req.StationName = ""
	if err := req.Validate(); err == nil {
		t.Error("empty station accepted")
	}

	req = validRequest()
	req.Phase = -1
	if err := req.Validate(); err == nil {
		t.Error("negative phase accepted")
	}

	req = validRequest()
	req.Participants = nil
	if err := req.Validate(); err == nil {
		t.Error("empty participants accepted")
	}

	req = validRequest()
	req.Participants = []Participant{{CharacterName: ""}}
	if err := req.Validate(); err == nil {
		t.Error("unnamed participant accepted")
	}
}

func TestWindowedMessages(t *testing.T) {
	req := validRequest()

	// Under the window: everything passes through.
	for i := 0; i < 5; i++ {
		req.RecentMessages = append(req.RecentMessages, Message{
			CharacterName: "지민",
			Content:       fmt.Sprintf("message %d", i),
		})
	}
	if got := req.WindowedMessages(); len(got) != 5 {
		t.Errorf("expected all 5 messages, got %d", len(got))
	}

	// Over the window: only the newest MessageWindow survive.
	req.RecentMessages = nil
	for i := 0; i < MessageWindow+10; i++ {
		req.RecentMessages = append(req.RecentMessages, Message{
			CharacterName: "지민",
			Content:       fmt.Sprintf("message %d", i),
		})
	}
	got := req.WindowedMessages()
	if len(got) != MessageWindow {
		t.Fatalf("expected %d messages, got %d", MessageWindow, len(got))
	}
	if got[0].Content != "message 10" {
		t.Errorf("window should keep the newest messages, first is %q", got[0].Content)
	}
	if got[len(got)-1].Content != fmt.Sprintf("message %d", MessageWindow+9) {
		t.Errorf("window should end at the latest message, last is %q", got[len(got)-1].Content)
	}
}
