package keyValue

import (
	"testing"
	"time"

	"go.uber.org/zap"
)

func newLocalKV() *KV {
	return New(zap.NewNop().Sugar(), nil, true)
}

func TestSetGet(t *testing.T) {
	kv := newLocalKV()

	if err := kv.Set("key", "value", time.Minute); err != nil {
		t.Fatal(err)
	}

	value, err := kv.Get("key")
	if err != nil {
		t.Fatal(err)
	}
	if value != "value" {
		t.Errorf("Got %q, want %q", value, "value")
	}
}

func TestGetMissingKeyIsEmptyNotError(t *testing.T) {
	kv := newLocalKV()

	value, err := kv.Get("never-set")
	if err != nil {
		t.Fatal(err)
	}
	if value != "" {
		t.Errorf("Missing key returned %q", value)
	}
}

func TestGetExpiredKeyIsEmpty(t *testing.T) {
	kv := newLocalKV()

	if err := kv.Set("key", "value", -time.Second); err != nil {
		t.Fatal(err)
	}

	value, err := kv.Get("key")
	if err != nil {
		t.Fatal(err)
	}
	if value != "" {
		t.Errorf("Expired key returned %q", value)
	}
}

func TestGetDelIsOneShot(t *testing.T) {
	kv := newLocalKV()

	if err := kv.Set("ticket", "y", time.Minute); err != nil {
		t.Fatal(err)
	}

	value, err := kv.GetDel("ticket")
	if err != nil {
		t.Fatal(err)
	}
	if value != "y" {
		t.Errorf("First redeem got %q, want %q", value, "y")
	}

	// a ticket can only be redeemed once
	value, err = kv.GetDel("ticket")
	if err != nil {
		t.Fatal(err)
	}
	if value != "" {
		t.Errorf("Second redeem got %q, want empty", value)
	}
}
