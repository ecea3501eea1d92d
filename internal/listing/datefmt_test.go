package listing

import "testing"

func TestFormatDate(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "iso date", raw: "2024-03-05", want: "5 March 2024"},
		{name: "double digit day", raw: "2023-12-25", want: "25 December 2023"},
		{name: "mongo timestamp", raw: "2024-03-05T00:00:00.000Z", want: "5 March 2024"},
		{name: "offset timestamp", raw: "2024-03-05T23:30:00-02:00", want: "6 March 2024"},
		{name: "no zone", raw: "2024-01-09T10:00:00", want: "9 January 2024"},
		{name: "padded", raw: " 2024-07-01 ", want: "1 July 2024"},
		{name: "garbage", raw: "not a date", want: "not a date"},
		{name: "empty", raw: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatDate(tt.raw); got != tt.want {
				t.Errorf("FormatDate(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}
