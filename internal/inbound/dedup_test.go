package inbound

import (
	"testing"
	"time"
)

func TestDedupTryRecordFirstThenDuplicate(t *testing.T) {
	d := NewDedup()
	if !d.TryRecord("om_1") {
		t.Fatal("expected first record to succeed")
	}
	if d.TryRecord("om_1") {
		t.Fatal("expected second record of same id to report duplicate")
	}
}

func TestDedupEmptyIDNeverDeduped(t *testing.T) {
	d := NewDedup()
	if !d.TryRecord("") {
		t.Fatal("expected empty id to never be deduped")
	}
	if !d.TryRecord("") {
		t.Fatal("expected empty id to never be deduped")
	}
}

func TestDedupExpiresAfterTTL(t *testing.T) {
	d := NewDedup()
	now := time.Now()
	d.now = func() time.Time { return now }

	if !d.TryRecord("om_1") {
		t.Fatal("expected first record to succeed")
	}
	now = now.Add(dedupTTL + time.Minute)
	if !d.TryRecord("om_1") {
		t.Fatal("expected id to be treated as new after TTL expiry")
	}
}
