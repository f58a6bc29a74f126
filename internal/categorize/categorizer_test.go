package categorize

import (
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"nudgify/internal/core"
)

func TestDefault_Category(t *testing.T) {
	tests := []struct {
		merchant string
		want     string
	}{
		{"Zomato", "Food"},
		{"  swiggy ", "Food"},
		{"AMAZON", "Shopping"},
		{"uber eats", "Food"},
		{"Uber", "Transport"},
		{"Netflix", "Entertainment"},
		{"Corner Store", core.FallbackCategory},
		{"", core.FallbackCategory},
		{core.UnknownMerchant, core.FallbackCategory},
	}
	c := Default()
	for _, tt := range tests {
		t.Run(tt.merchant, func(t *testing.T) {
			if got := c.Category(tt.merchant); got != tt.want {
				t.Errorf("Category(%q) = %q, want %q", tt.merchant, got, tt.want)
			}
		})
	}
}

func TestDefault_IsShared(t *testing.T) {
	var wg sync.WaitGroup
	got := make([]*Categorizer, 8)
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got[i] = Default()
		}(i)
	}
	wg.Wait()
	for i := range got {
		if got[i] != got[0] {
			t.Fatal("Default should return the same instance")
		}
	}
}

func TestApply_KeepsSourceCategory(t *testing.T) {
	c := New(map[string]string{"zomato": "food"})
	in := []core.Transaction{
		{Merchant: "Zomato", Amount: decimal.NewNullDecimal(decimal.NewFromInt(10))},
		{Merchant: "Zomato", Category: "Treats"},
		{Merchant: "Acme"},
	}
	out := c.Apply(in)

	want := []string{"Food", "Treats", core.FallbackCategory}
	for i, w := range want {
		if out[i].Category != w {
			t.Errorf("out[%d].Category = %q, want %q", i, out[i].Category, w)
		}
	}
	if in[0].Category != "" {
		t.Error("Apply must not mutate its input")
	}
	if !out[0].Amount.Decimal.Equal(decimal.NewFromInt(10)) || out[0].Merchant != "Zomato" {
		t.Error("Apply must only touch Category")
	}
}

func TestParse(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		c, err := Parse([]byte("categories:\n  travel:\n    - indigo\n    - Air India\n"))
		if err != nil {
			t.Fatalf("Parse: %v", err)
		}
		if got := c.Category("air india"); got != "Travel" {
			t.Errorf("got %q, want Travel", got)
		}
	})

	t.Run("merchant in two categories", func(t *testing.T) {
		_, err := Parse([]byte("categories:\n  a:\n    - x\n  b:\n    - X\n"))
		if err == nil {
			t.Fatal("expected conflict error")
		}
	})

	t.Run("malformed", func(t *testing.T) {
		if _, err := Parse([]byte("categories: [")); err == nil {
			t.Fatal("expected decode error")
		}
	})
}

func TestCategoriesAndTable(t *testing.T) {
	c := New(map[string]string{"a": "Zed", "b": "alpha", "c": "Zed"})
	cats := c.Categories()
	want := []string{"Alpha", "Zed", core.FallbackCategory}
	if len(cats) != len(want) {
		t.Fatalf("Categories() = %v, want %v", cats, want)
	}
	for i := range want {
		if cats[i] != want[i] {
			t.Fatalf("Categories() = %v, want %v", cats, want)
		}
	}

	table := c.Table()
	table["A"] = "Mutated"
	if c.Category("a") != "Zed" {
		t.Error("Table must return a copy")
	}
}
