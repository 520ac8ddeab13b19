package versioned

import "testing"

func TestNewStartsAtInitialVersion(t *testing.T) {
	v := New([]float32{1, 2, 3})
	if got := v.Version(); got != InitialVersion {
		t.Errorf("Version() = %d, want %d", got, InitialVersion)
	}
	var zero Versioned[int]
	if got := zero.Version(); got != InitialVersion {
		t.Errorf("zero Version() = %d, want %d", got, InitialVersion)
	}
}

func TestSetAndIncrementAdvanceByOne(t *testing.T) {
	tests := []struct {
		name string
		ops  []func(*Versioned[[]float32])
	}{
		{"none", nil},
		{"one set", []func(*Versioned[[]float32]){
			func(v *Versioned[[]float32]) { v.Set([]float32{4}) },
		}},
		{"set then in-place", []func(*Versioned[[]float32]){
			func(v *Versioned[[]float32]) { v.Set([]float32{4}) },
			func(v *Versioned[[]float32]) { v.Value()[0] = 5; v.Increment() },
		}},
		{"same value twice", []func(*Versioned[[]float32]){
			func(v *Versioned[[]float32]) { v.Set(v.Value()) },
			func(v *Versioned[[]float32]) { v.Set(v.Value()) },
			func(v *Versioned[[]float32]) { v.Set(v.Value()) },
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New([]float32{0})
			for _, op := range tt.ops {
				op(v)
			}
			want := InitialVersion + uint64(len(tt.ops))
			if got := v.Version(); got != want {
				t.Errorf("Version() = %d, want %d", got, want)
			}
		})
	}
}

func TestGetReturnsValueAndVersion(t *testing.T) {
	v := New("a")
	v.Set("b")
	val, ver := v.Get()
	if val != "b" || ver != InitialVersion+1 {
		t.Errorf("Get() = (%q, %d), want (%q, %d)", val, ver, "b", InitialVersion+1)
	}
}

func TestIsNewerThan(t *testing.T) {
	v := New(0)
	seen := v.Version()
	if v.IsNewerThan(seen) {
		t.Errorf("IsNewerThan(%d) = true before mutation", seen)
	}
	v.Set(0)
	if !v.IsNewerThan(seen) {
		t.Errorf("IsNewerThan(%d) = false after Set", seen)
	}
}
