package domain

import "testing"

func TestParseAccessMode(t *testing.T) {
	tests := []struct {
		name    string
		token   string
		want    AccessMode
		wantErr bool
	}{
		{name: "exact match", token: "BAN", want: AccessModeBan},
		{name: "lowercase", token: "upcharge", want: AccessModeUpcharge},
		{name: "mixed case with spaces", token: "  Window_Shop ", want: AccessModeWindowShop},
		{name: "allow", token: "ALLOW", want: AccessModeAllow},
		{name: "unknown token", token: "FRIENDLY", wantErr: true},
		{name: "empty token", token: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAccessMode(tt.token)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for token %q, got mode %q", tt.token, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected mode %q, got %q", tt.want, got)
			}
		})
	}
}

func TestUpchargedPrice(t *testing.T) {
	tests := []struct {
		name  string
		price int64
		pct   float64
		want  int64
	}{
		{name: "fifty percent", price: 100, pct: 50, want: 150},
		{name: "zero percent is identity", price: 100, pct: 0, want: 100},
		{name: "rounds half up", price: 101, pct: 50, want: 152},
		{name: "rounds down below half", price: 100, pct: 0.4, want: 100},
		{name: "full doubling", price: 2500, pct: 100, want: 5000},
		{name: "max upcharge", price: 10, pct: 1000, want: 110},
		{name: "zero price stays zero", price: 0, pct: 300, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UpchargedPrice(tt.price, tt.pct); got != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestValidUpchargePercent(t *testing.T) {
	tests := []struct {
		name string
		pct  float64
		want bool
	}{
		{name: "lower bound", pct: 0, want: true},
		{name: "upper bound", pct: 1000, want: true},
		{name: "typical value", pct: 50, want: true},
		{name: "negative", pct: -0.1, want: false},
		{name: "above maximum", pct: 1000.5, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidUpchargePercent(tt.pct); got != tt.want {
				t.Fatalf("expected %v for %v, got %v", tt.want, tt.pct, got)
			}
		})
	}
}

func TestRelationTypeHostile(t *testing.T) {
	if !RelationEnemy.Hostile() {
		t.Fatal("expected ENEMY to be hostile")
	}
	if !RelationType("enemy").Hostile() {
		t.Fatal("expected lowercase enemy to be hostile")
	}
	for _, rel := range []RelationType{RelationAlly, RelationTruce, RelationNeutral, RelationType("")} {
		if rel.Hostile() {
			t.Fatalf("expected %q not to be hostile", rel)
		}
	}
}
