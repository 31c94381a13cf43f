package session

import (
	"testing"
	"time"
)

func TestClassifyReuse(t *testing.T) {
	now := time.Now().UTC()
	ptr := func(s string) *string { return &s }
	at := func(d time.Duration) *time.Time { t := now.Add(d); return &t }

	tests := []struct {
		name  string
		rec   Record
		grace time.Duration
		want  Verdict
	}{
		{
			name: "expired not revoked",
			rec:  Record{ExpiresAt: now.Add(-time.Hour)},
			want: VerdictExpired,
		},
		{
			name: "revoked by logout",
			rec:  Record{RevokedAt: at(-time.Minute), RevokedReason: ptr(ReasonLogout)},
			want: VerdictBenign,
		},
		{
			name: "revoked by earlier reuse detection",
			rec:  Record{RevokedAt: at(-time.Minute), RevokedReason: ptr(ReasonReuseDetected)},
			want: VerdictBenign,
		},
		{
			name: "rotated away strict",
			rec:  Record{RevokedAt: at(-time.Second), RevokedReason: ptr(ReasonRotation)},
			want: VerdictReplay,
		},
		{
			name:  "rotated away inside grace",
			rec:   Record{RevokedAt: at(-10 * time.Second), RevokedReason: ptr(ReasonRotation)},
			grace: 30 * time.Second,
			want:  VerdictGraced,
		},
		{
			name:  "rotated away outside grace",
			rec:   Record{RevokedAt: at(-time.Minute), RevokedReason: ptr(ReasonRotation)},
			grace: 30 * time.Second,
			want:  VerdictReplay,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifyReuse(tt.rec, now, tt.grace); got != tt.want {
				t.Fatalf("classifyReuse() = %v, want %v", got, tt.want)
			}
		})
	}
}
