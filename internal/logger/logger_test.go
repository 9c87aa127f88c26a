package logger

import "testing"

func TestSanitizeKVs(t *testing.T) {
	tests := []struct {
		name string
		in   []interface{}
		want []interface{}
	}{
		{
			name: "plain values pass through",
			in:   []interface{}{"user", 7, "path", "/api/me"},
			want: []interface{}{"user", 7, "path", "/api/me"},
		},
		{
			name: "credentials are redacted",
			in:   []interface{}{"password", "hunter2", "Session_Token", "abc", "email", "a@b.c"},
			want: []interface{}{"password", redacted, "Session_Token", redacted, "email", redacted},
		},
		{
			name: "odd trailing key kept",
			in:   []interface{}{"status", 200, "dangling"},
			want: []interface{}{"status", 200, "dangling"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sanitizeKVs(tt.in)
			if len(got) != len(tt.want) {
				t.Fatalf("sanitizeKVs() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("position %d = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestObservedLoggerRedacts(t *testing.T) {
	log, logs := NewObserved()
	log.With("request_id", "r1").Info("login", "email", "kid@example.com", "user_id", 3)

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("got %d entries", len(entries))
	}
	ctx := entries[0].ContextMap()
	if ctx["email"] != redacted {
		t.Errorf("email = %v, want redacted", ctx["email"])
	}
	if ctx["request_id"] != "r1" || ctx["user_id"] != int64(3) {
		t.Errorf("context = %v", ctx)
	}
}

func TestNewRejectsBadLevel(t *testing.T) {
	if _, err := New("development", "loud"); err == nil {
		t.Error("expected error for unknown level")
	}
}
