package managedip

import (
	"strings"
	"testing"
)

func TestHashDeterminism(t *testing.T) {
	a := HashID("198.51.100.7")
	b := HashID("198.51.100.7")
	if a != b {
		t.Fatalf("HashID not deterministic: %q != %q", a, b)
	}
	if HashID("198.51.100.8") == a {
		t.Fatal("distinct inputs hashed to the same digest")
	}
}

func TestTransformIdentityWhenDisabled(t *testing.T) {
	tr := Transform(false)
	if tr("1.2.3.4") != "1.2.3.4" {
		t.Fatal("disabled transform must be identity")
	}
}

func TestOracleNoFalseNegatives(t *testing.T) {
	o := NewOracle(1000, 0.01)
	ips := []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"}
	for _, ip := range ips {
		o.Add(ip)
	}
	for _, ip := range ips {
		if !o.Test(ip) {
			t.Fatalf("false negative for %s", ip)
		}
	}
}

func TestLoadOracleAppliesTransformUniformly(t *testing.T) {
	file := strings.NewReader("10.0.0.1\n10.0.0.2\n\n10.0.0.3\n")
	o, err := LoadOracle(file, 100, 0.01, HashID)
	if err != nil {
		t.Fatalf("LoadOracle: %v", err)
	}
	if !o.Test(HashID("10.0.0.1")) {
		t.Fatal("expected hashed entry to be a member")
	}
	if o.Test("10.0.0.1") {
		t.Fatal("raw (unhashed) lookup should not match a hashed oracle by coincidence")
	}
}
