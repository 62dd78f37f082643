package runtime

import (
	"strings"
	"testing"

	"github.com/cruciblehq/kiln/internal/toolchain"
)

func TestToolchainRef(t *testing.T) {
	tc := toolchain.Descriptor{Name: "rust", Version: "1.78.0"}

	ref := toolchainRef(tc)
	if ref != "docker.io/library/rust:1.78.0" {
		t.Fatalf("ref = %q, want docker.io/library/rust:1.78.0", ref)
	}
}

func TestAppTag(t *testing.T) {
	tag := appTag("sha256:abc123")

	if !strings.HasPrefix(tag, "kiln/app/") {
		t.Fatalf("tag %q missing kiln/app/ prefix", tag)
	}
	if !strings.HasSuffix(tag, ":latest") {
		t.Fatalf("tag %q missing :latest suffix", tag)
	}

	if appTag("sha256:abc123") != tag {
		t.Fatal("appTag is not deterministic")
	}
	if appTag("sha256:def456") == tag {
		t.Fatal("different digests produced the same tag")
	}
}
