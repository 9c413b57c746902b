package models

import "testing"

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in   string
		want Status
		ok   bool
	}{
		{"pending", StatusPending, true},
		{"approved", StatusApproved, true},
		{"rejected", StatusRejected, true},
		{"", "", false},
		{"Approved", "", false},
		{"deleted", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseStatus(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseStatus(%q) = (%q, %v), ожидалось (%q, %v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestCanReviewTo(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusApproved, true},
		{StatusPending, StatusRejected, true},
		{StatusPending, StatusPending, false},
		{StatusApproved, StatusApproved, true},
		{StatusApproved, StatusRejected, true},
		{StatusApproved, StatusPending, false},
		{StatusRejected, StatusRejected, true},
		{StatusRejected, StatusApproved, false},
		{StatusRejected, StatusPending, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			if got := tt.from.CanReviewTo(tt.to); got != tt.want {
				t.Errorf("CanReviewTo = %v, ожидалось %v", got, tt.want)
			}
		})
	}
}

func TestIsReviewTarget(t *testing.T) {
	if StatusPending.IsReviewTarget() {
		t.Error("pending не может быть результатом рассмотрения")
	}
	if !StatusApproved.IsReviewTarget() || !StatusRejected.IsReviewTarget() {
		t.Error("approved и rejected должны быть допустимыми результатами")
	}
}

func TestAllows(t *testing.T) {
	ops := []Operation{OpComment, OpEdit, OpList, OpRandom}
	for _, op := range ops {
		if !StatusApproved.Allows(op) {
			t.Errorf("approved должен разрешать %s", op)
		}
		if StatusPending.Allows(op) {
			t.Errorf("pending не должен разрешать %s", op)
		}
		if StatusRejected.Allows(op) {
			t.Errorf("rejected не должен разрешать %s", op)
		}
	}
	if Status("unknown").Allows(OpList) {
		t.Error("неизвестный статус не должен разрешать операции")
	}
}

func TestStatusesAllowing(t *testing.T) {
	for _, op := range []Operation{OpComment, OpEdit, OpList, OpRandom} {
		got := StatusesAllowing(op)
		if len(got) != 1 || got[0] != StatusApproved {
			t.Errorf("%s: ожидался только approved, получено %v", op, got)
		}
	}
	if got := StatusesAllowing(Operation("unknown")); len(got) != 0 {
		t.Errorf("неизвестная операция не должна быть разрешена, получено %v", got)
	}
}
