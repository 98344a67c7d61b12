package nodeid

import (
	"errors"
	"testing"
)

func TestFromName(t *testing.T) {
	a := FromName("api-7f9c-0", 1023)
	if a < 0 || a > 1023 {
		t.Fatalf("FromName() = %d, out of [0, 1023]", a)
	}
	if b := FromName("api-7f9c-0", 1023); b != a {
		t.Errorf("FromName() not stable: %d then %d", a, b)
	}
	if got := FromName("anything", 0); got != 0 {
		t.Errorf("FromName(maxNode=0) = %d, want 0", got)
	}
}

func TestFromName_Spread(t *testing.T) {
	seen := make(map[int64]bool)
	for i := 0; i < 200; i++ {
		seen[FromName("host-"+string(rune('a'+i%26))+string(rune('a'+i/26)), 1023)] = true
	}
	// 200 names into 1024 slots: expect well over half distinct.
	if len(seen) < 150 {
		t.Errorf("only %d distinct node IDs for 200 names", len(seen))
	}
}

func TestDerive_Order(t *testing.T) {
	env := map[string]string{}
	getenv := func(k string) string { return env[k] }
	hostname := func() (string, error) { return "from-os", nil }

	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"pod name wins", map[string]string{"POD_NAME": "pod-1", "HOSTNAME": "host-1"}, "pod-1"},
		{"hostname env", map[string]string{"HOSTNAME": "host-1"}, "host-1"},
		{"os hostname", map[string]string{}, "from-os"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env = tt.env
			id, name, err := derive(getenv, hostname, 1023)
			if err != nil {
				t.Fatalf("derive() error = %v", err)
			}
			if name != tt.want {
				t.Errorf("name = %q, want %q", name, tt.want)
			}
			if id != FromName(tt.want, 1023) {
				t.Errorf("id = %d, want FromName(%q)", id, tt.want)
			}
		})
	}
}

func TestDerive_NoName(t *testing.T) {
	getenv := func(string) string { return "" }

	_, _, err := derive(getenv, func() (string, error) { return "", errors.New("boom") }, 1023)
	if !errors.Is(err, ErrNoName) {
		t.Errorf("hostname error: err = %v, want ErrNoName", err)
	}

	_, _, err = derive(getenv, func() (string, error) { return "", nil }, 1023)
	if !errors.Is(err, ErrNoName) {
		t.Errorf("empty hostname: err = %v, want ErrNoName", err)
	}
}
