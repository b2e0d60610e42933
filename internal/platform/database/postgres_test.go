package database

import (
	"testing"
	"time"
)

func TestPoolDefaults(t *testing.T) {
	tests := []struct {
		name string
		in   Pool
		want Pool
	}{
		{
			name: "zero value",
			want: Pool{MaxOpenConns: 10, MaxIdleConns: 5, ConnMaxLifetime: 30 * time.Minute},
		},
		{
			name: "idle capped by open",
			in:   Pool{MaxOpenConns: 3, MaxIdleConns: 8},
			want: Pool{MaxOpenConns: 3, MaxIdleConns: 3, ConnMaxLifetime: 30 * time.Minute},
		},
		{
			name: "explicit values kept",
			in:   Pool{MaxOpenConns: 20, MaxIdleConns: 4, ConnMaxLifetime: time.Minute},
			want: Pool{MaxOpenConns: 20, MaxIdleConns: 4, ConnMaxLifetime: time.Minute},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.in.withDefaults(); got != tt.want {
				t.Fatalf("expected %+v, got %+v", tt.want, got)
			}
		})
	}
}
