//go:build profile

package prof

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestStartCPU(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cpu.prof")

	if err := StartCPU(path); err != nil {
		t.Fatalf("StartCPU() = %v", err)
	}
	if err := StartCPU(path); !errors.Is(err, ErrCPUProfileActive) {
		t.Errorf("second StartCPU() = %v, want %v", err, ErrCPUProfileActive)
	}
	if err := StopCPU(); err != nil {
		t.Fatalf("StopCPU() = %v", err)
	}
	if err := StopCPU(); err != nil {
		t.Errorf("StopCPU() when idle = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("profile not written: %v", err)
	}
	if info.Size() == 0 {
		t.Error("profile is empty")
	}
}

func TestWrite(t *testing.T) {
	dir := t.TempDir()
	for _, p := range []Profile{ProfileHeap, ProfileGoroutine, ProfileMutex} {
		t.Run(p.String(), func(t *testing.T) {
			path := filepath.Join(dir, p.String()+".prof")
			if err := Write(p, path); err != nil {
				t.Fatalf("Write(%s) = %v", p, err)
			}
			if _, err := os.Stat(path); err != nil {
				t.Errorf("profile not written: %v", err)
			}
		})
	}

	if err := Write(ProfileCPU, filepath.Join(dir, "cpu.prof")); !errors.Is(err, ErrInvalidProfile) {
		t.Errorf("Write(cpu) = %v, want %v", err, ErrInvalidProfile)
	}
	if err := Write("bogus", filepath.Join(dir, "bogus.prof")); !errors.Is(err, ErrInvalidProfile) {
		t.Errorf("Write(bogus) = %v, want %v", err, ErrInvalidProfile)
	}
}

func TestRegister(t *testing.T) {
	mux := http.NewServeMux()
	Register(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/pprof/", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("GET /debug/pprof/ = %d, want 200", rec.Code)
	}
}
