package encryption

import (
	"bytes"
	"testing"

	"fdb-go/internal/config"
)

func configFor(typ string) config.EncryptionConfig {
	return config.EncryptionConfig{Type: typ}
}

func TestTestEncryptor_RoundTrip(t *testing.T) {
	e := NewTestEncryptor()
	input := []byte("snapshot archive bytes")

	var encrypted bytes.Buffer
	if err := e.Encrypt(bytes.NewReader(input), &encrypted); err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	if bytes.Equal(encrypted.Bytes(), input) {
		t.Error("encrypted output is identical to plaintext")
	}

	ctx, err := e.Unlock("any")
	if err != nil {
		t.Fatalf("Unlock() error = %v", err)
	}
	var decrypted bytes.Buffer
	if err := ctx.Decrypt(bytes.NewReader(encrypted.Bytes()), &decrypted); err != nil {
		t.Fatalf("Decrypt() error = %v", err)
	}
	if !bytes.Equal(decrypted.Bytes(), input) {
		t.Errorf("round-trip = %q, want %q", decrypted.Bytes(), input)
	}
}

func TestTestDecryptionContext_RejectsForeignData(t *testing.T) {
	ctx := &TestDecryptionContext{}
	var out bytes.Buffer
	if err := ctx.Decrypt(bytes.NewReader([]byte("not encrypted data")), &out); err == nil {
		t.Error("Decrypt() of unencrypted data error = nil, want header error")
	}
}

func TestNewEncryptorFromConfig(t *testing.T) {
	tests := []struct {
		typ     string
		wantErr bool
	}{
		{"age", false},
		{"", false},
		{"test", false},
		{"rot13", true},
	}
	for _, tt := range tests {
		_, err := NewEncryptorFromConfig(configFor(tt.typ))
		if (err != nil) != tt.wantErr {
			t.Errorf("NewEncryptorFromConfig(type=%q) error = %v, wantErr %v", tt.typ, err, tt.wantErr)
		}
	}
}
