package engine

import (
	"testing"

	"github.com/jaalnet/jaal/pkg/patterns"
)

func findType(ids []Identifier, t patterns.IdentifierType) *Identifier {
	for i := range ids {
		if ids[i].Type == t {
			return &ids[i]
		}
	}
	return nil
}

// A UPI handle is extracted once; re-feeding the same text
// yields nothing new.
func TestExtractUPIDedup(t *testing.T) {
	ex := NewExtractor()
	sess := NewSession("s1")

	first := ex.Extract("Send payment to scammer@ybl immediately", sess)
	upi := findType(first, patterns.IDUPI)
	if upi == nil {
		t.Fatalf("expected a UPI identifier, got %v", first)
	}
	if upi.Value != "scammer@ybl" {
		t.Errorf("want scammer@ybl, got %s", upi.Value)
	}

	second := ex.Extract("Send payment to scammer@ybl immediately", sess)
	if len(second) != 0 {
		t.Errorf("re-extraction must be a no-op, got %v", second)
	}
	if len(sess.Identifiers[patterns.IDUPI]) != 1 {
		t.Errorf("session must hold exactly one UPI identifier")
	}
}

func TestExtractUPICaseFolded(t *testing.T) {
	ex := NewExtractor()
	sess := NewSession("s1")

	ex.Extract("pay to Scammer@YBL", sess)
	added := ex.Extract("pay to scammer@ybl", sess)
	if len(added) != 0 {
		t.Errorf("case variants of a UPI handle must deduplicate, got %v", added)
	}
}

func TestExtractEmailNotUPI(t *testing.T) {
	ex := NewExtractor()
	sess := NewSession("s1")

	ids := ex.Extract("mail me at refunds@support-desk.com", sess)

	if findType(ids, patterns.IDEmail) == nil {
		t.Error("expected an email identifier")
	}
	if findType(ids, patterns.IDUPI) != nil {
		t.Error("a dotted domain is an email, not a UPI handle")
	}
}

func TestExtractPhoneNormalization(t *testing.T) {
	ex := NewExtractor()
	sess := NewSession("s1")

	first := ex.Extract("call me on +91 98765 43210", sess)
	phone := findType(first, patterns.IDPhone)
	if phone == nil {
		t.Fatalf("expected a phone identifier, got %v", first)
	}
	if phone.Value != "9876543210" {
		t.Errorf("want normalized 9876543210, got %s", phone.Value)
	}

	// The bare form is the same identifier.
	added := ex.Extract("my number is 9876543210", sess)
	if findType(added, patterns.IDPhone) != nil {
		t.Error("country-code variant must deduplicate against bare form")
	}
}

func TestExtractAccountVsPhone(t *testing.T) {
	ex := NewExtractor()
	sess := NewSession("s1")

	ids := ex.Extract("account 123456789012345, phone 9876543210", sess)

	acct := findType(ids, patterns.IDBankAccount)
	if acct == nil {
		t.Fatal("expected a bank account identifier")
	}
	if acct.Value != "123456789012345" {
		t.Errorf("want 123456789012345, got %s", acct.Value)
	}

	// A 10-digit number is a phone, never an account.
	sess2 := NewSession("s2")
	ids2 := ex.Extract("send to 9876543210", sess2)
	if findType(ids2, patterns.IDBankAccount) != nil {
		t.Error("10-digit number must not become a bank account")
	}
	if findType(ids2, patterns.IDPhone) == nil {
		t.Error("10-digit number should be a phone")
	}
}

func TestExtractAmountIsNotAccount(t *testing.T) {
	ex := NewExtractor()
	sess := NewSession("s1")

	ids := ex.Extract("pay rs 50000000000 right away", sess)
	if findType(ids, patterns.IDBankAccount) != nil {
		t.Error("currency-prefixed digits are an amount, not an account")
	}
}

func TestExtractReferenceNeedsDigit(t *testing.T) {
	ex := NewExtractor()

	if ids := ex.Scan("the case closed yesterday"); findType(ids, patterns.IDCaseID) != nil {
		t.Error("bare words after a prefix keyword must not extract")
	}

	ids := ex.Scan("your complaint REF: AB12345 is registered")
	ref := findType(ids, patterns.IDCaseID)
	if ref == nil {
		t.Fatalf("expected a case id, got %v", ids)
	}
	t.Logf("case id value: %s", ref.Value)
}

func TestExtractIFSCAndPAN(t *testing.T) {
	ex := NewExtractor()

	ids := ex.Scan("transfer to SBIN0001234, PAN ABCDE1234F")
	if findType(ids, patterns.IDIFSC) == nil {
		t.Error("expected an IFSC identifier")
	}
	if findType(ids, patterns.IDPAN) == nil {
		t.Error("expected a PAN identifier")
	}
}

func TestExtractURL(t *testing.T) {
	ex := NewExtractor()

	ids := ex.Scan("click https://kyc-update.example-verify.in/form now")
	url := findType(ids, patterns.IDURL)
	if url == nil {
		t.Fatal("expected a URL identifier")
	}
	if url.Value != "https://kyc-update.example-verify.in/form" {
		t.Errorf("unexpected URL value %s", url.Value)
	}
}

func TestExtractMalformedInput(t *testing.T) {
	ex := NewExtractor()
	sess := NewSession("s1")

	for _, text := range []string{"", "   ", "\x00\x01"} {
		if ids := ex.Extract(text, sess); len(ids) != 0 {
			t.Errorf("malformed input %q must extract nothing, got %v", text, ids)
		}
	}
}

func TestExtractFromHistory(t *testing.T) {
	ex := NewExtractor()
	sess := NewSession("s1")

	history := []Message{
		msg(RoleScammer, 1, "I am Rajesh Kumar from the bank"),
		msg(RoleAgent, 1, "Hello, who is this?"),
		msg(RoleScammer, 2, "send fee to helper@paytm"),
		msg(RoleAgent, 2, "Which app should I use?"),
		msg(RoleScammer, 3, "or call 98765 43210"),
	}

	ids := ex.ExtractFromHistory(history, sess)

	if findType(ids, patterns.IDUPI) == nil {
		t.Error("expected UPI from history")
	}
	if findType(ids, patterns.IDPhone) == nil {
		t.Error("expected phone from history")
	}
	if sess.ExtractionProgress() < 0.4 {
		t.Errorf("two high-value types collected, progress %.2f", sess.ExtractionProgress())
	}
}

func TestExtractionProgressCap(t *testing.T) {
	sess := NewSession("s1")
	ex := NewExtractor()

	ex.Extract("phone 9876543210, upi me@ybl, account 123456789012, visit https://x.test/a, mail a@b.com", sess)

	progress := sess.ExtractionProgress()
	if progress != 1.0 {
		t.Errorf("all five high-value types present, want progress 1.0, got %.2f", progress)
	}
}
