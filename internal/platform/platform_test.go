package platform

import (
	"errors"
	"testing"
)

func TestNormalize(t *testing.T) {
	got, err := Normalize("linux/amd64")
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if got != "linux/amd64" {
		t.Fatalf("Normalize = %q, want linux/amd64", got)
	}
}

func TestNormalizeAlias(t *testing.T) {
	got, err := Normalize("linux/x86_64")
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if got != "linux/amd64" {
		t.Fatalf("Normalize = %q, want linux/amd64", got)
	}
}

func TestNormalizeInvalid(t *testing.T) {
	_, err := Normalize("not a platform!!")
	if !errors.Is(err, ErrInvalidPlatform) {
		t.Fatalf("err = %v, want ErrInvalidPlatform", err)
	}
}

func TestNormalizeAllEmptyUsesDefaults(t *testing.T) {
	got, err := NormalizeAll(nil)
	if err != nil {
		t.Fatalf("NormalizeAll failed: %v", err)
	}
	want := Defaults()
	if len(got) != len(want) {
		t.Fatalf("NormalizeAll = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("NormalizeAll[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestNormalizeAllPreservesOrder(t *testing.T) {
	got, err := NormalizeAll([]string{"darwin/arm64", "linux/amd64"})
	if err != nil {
		t.Fatalf("NormalizeAll failed: %v", err)
	}
	if got[0] != "darwin/arm64" || got[1] != "linux/amd64" {
		t.Fatalf("NormalizeAll = %v, want input order preserved", got)
	}
}

func TestNormalizeAllRejectsDuplicates(t *testing.T) {
	_, err := NormalizeAll([]string{"linux/amd64", "linux/x86_64"})
	if !errors.Is(err, ErrInvalidPlatform) {
		t.Fatalf("err = %v, want ErrInvalidPlatform for alias duplicate", err)
	}
}

func TestHost(t *testing.T) {
	h := Host()
	if _, err := Normalize(h); err != nil {
		t.Fatalf("host platform %q does not normalize: %v", h, err)
	}
}

func TestOS(t *testing.T) {
	if got := OS("linux/amd64"); got != "linux" {
		t.Fatalf("OS = %q, want linux", got)
	}
}

func TestSlug(t *testing.T) {
	if got := Slug("linux/amd64"); got != "linux-amd64" {
		t.Fatalf("Slug = %q, want linux-amd64", got)
	}
}

func TestDefaultsIsCopy(t *testing.T) {
	d := Defaults()
	d[0] = "mutated"
	if Defaults()[0] == "mutated" {
		t.Fatal("Defaults returned shared backing storage")
	}
}
