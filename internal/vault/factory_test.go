package vault

import (
	"context"
	"testing"

	"fdb-go/internal/config"
)

func TestNewVaultFromConfig(t *testing.T) {
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		v, err := NewVaultFromConfig(ctx, config.VaultConfig{Type: "memory", Name: "m"})
		if err != nil {
			t.Fatalf("NewVaultFromConfig() error = %v", err)
		}
		if _, ok := v.(*MemoryVault); !ok {
			t.Errorf("type = %T, want *MemoryVault", v)
		}
	})

	t.Run("filesystem", func(t *testing.T) {
		v, err := NewVaultFromConfig(ctx, config.VaultConfig{
			Type: "filesystem", Name: "fs", FSVaultRoot: t.TempDir(),
		})
		if err != nil {
			t.Fatalf("NewVaultFromConfig() error = %v", err)
		}
		if _, ok := v.(*FileSystemVault); !ok {
			t.Errorf("type = %T, want *FileSystemVault", v)
		}
	})

	t.Run("filesystem without root", func(t *testing.T) {
		if _, err := NewVaultFromConfig(ctx, config.VaultConfig{Type: "filesystem", Name: "fs"}); err == nil {
			t.Error("NewVaultFromConfig() error = nil, want missing root error")
		}
	})

	t.Run("unknown type", func(t *testing.T) {
		if _, err := NewVaultFromConfig(ctx, config.VaultConfig{Type: "tape"}); err == nil {
			t.Error("NewVaultFromConfig() error = nil, want unknown type error")
		}
	})
}
