package template

import (
	"reflect"
	"testing"
)

func TestRender(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		text           string
		values         Values
		want           string
		wantUnresolved []string
	}{
		{
			name:   "listing and address",
			text:   "Re: [#LISTID] at [#ADDRESS]",
			values: Values{ListID: "42", Address: "1 Main St"},
			want:   "Re: 42 at 1 Main St",
		},
		{
			name:           "unmapped token left literally",
			text:           "Re: [#LISTID] because [#REASON]",
			values:         Values{ListID: "42"},
			want:           "Re: 42 because [#REASON]",
			wantUnresolved: []string{"[#REASON]"},
		},
		{
			name:   "repeated token",
			text:   "[#NAME], [#NAME]!",
			values: Values{Name: "Ana"},
			want:   "Ana, Ana!",
		},
		{
			name:   "markup tokens",
			text:   "Hello[#BR]world[#P]bye",
			values: nil,
			want:   "Hello<br />world</p><p>bye",
		},
		{
			name:   "values are not expanded twice",
			text:   "[#REASON]",
			values: Values{Reason: "see [#LISTID]", ListID: "42"},
			want:   "see [#LISTID]",
		},
		{
			name:           "case sensitive",
			text:           "[#listid]",
			values:         Values{ListID: "42"},
			want:           "[#listid]",
			wantUnresolved: []string{"[#listid]"},
		},
		{
			name:   "empty value substitutes",
			text:   "Phone: [#APPLPHONE].",
			values: Values{ApplicantPhone: ""},
			want:   "Phone: .",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := Render(tt.text, tt.values)
			if got.Text != tt.want {
				t.Fatalf("Render().Text = %q, want %q", got.Text, tt.want)
			}
			if len(got.Unresolved) != len(tt.wantUnresolved) {
				t.Fatalf("Render().Unresolved = %v, want %v", got.Unresolved, tt.wantUnresolved)
			}
			if len(tt.wantUnresolved) > 0 && !reflect.DeepEqual(got.Unresolved, tt.wantUnresolved) {
				t.Fatalf("Render().Unresolved = %v, want %v", got.Unresolved, tt.wantUnresolved)
			}
		})
	}
}

func TestMissing(t *testing.T) {
	t.Parallel()

	missing := Missing(Values{ListID: "1", Reason: ""}, []Token{ListID, Reason, DueDate})
	if len(missing) != 1 || missing[0] != DueDate {
		t.Fatalf("Missing() = %v, want [DUEDATE]", missing)
	}
}

func TestPlaceholder(t *testing.T) {
	t.Parallel()

	if got := ApplicationID.Placeholder(); got != "[#APPLID]" {
		t.Fatalf("Placeholder() = %q", got)
	}
}
