package message

import "testing"

func TestProfileURL(t *testing.T) {
	u := User{Username: "alice"}
	want := "https://dogehouse.tv/u/alice"
	if got := u.ProfileURL(); got != want {
		t.Errorf("ProfileURL: got %q, want %q", got, want)
	}

	if got := (User{}).ProfileURL(); got != "" {
		t.Errorf("ProfileURL for empty username: got %q, want empty", got)
	}
}

func TestClientUserIs(t *testing.T) {
	tests := []struct {
		name   string
		client *ClientUser
		author User
		want   bool
	}{
		{
			"matching id",
			&ClientUser{User: User{ID: "u1", Username: "alice"}},
			User{ID: "u1", Username: "someone-else"},
			true,
		},
		{
			"matching username, no ids",
			&ClientUser{User: User{Username: "alice"}},
			User{Username: "alice"},
			true,
		},
		{
			"ids differ but username matches",
			&ClientUser{User: User{ID: "u1", Username: "alice"}},
			User{ID: "u2", Username: "alice"},
			true,
		},
		{
			"no match",
			&ClientUser{User: User{ID: "u1", Username: "alice"}},
			User{ID: "u2", Username: "bob"},
			false,
		},
		{
			"nil client user",
			nil,
			User{Username: "alice"},
			false,
		},
		{
			"empty usernames never match",
			&ClientUser{},
			User{},
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.client.Is(tt.author); got != tt.want {
				t.Errorf("Is: got %v, want %v", got, tt.want)
			}
		})
	}
}
