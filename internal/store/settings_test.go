package store

import (
	"errors"
	"testing"
)

func TestSettingsRepository_GetSet(t *testing.T) {
	s := newTestStore(t)
	repo := s.Settings()

	if _, err := repo.Get("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}

	if err := repo.Set("k", "one"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := repo.Set("k", "two"); err != nil {
		t.Fatalf("Set() overwrite error = %v", err)
	}
	if v, _ := repo.Get("k"); v != "two" {
		t.Errorf("Get() = %q, want two", v)
	}

	if err := repo.Delete("k"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := repo.Delete("k"); err != nil {
		t.Errorf("Delete() of a missing key error = %v", err)
	}
}

func TestSettingsRepository_Bool(t *testing.T) {
	s := newTestStore(t)
	repo := s.Settings()

	if v, err := repo.Bool(KeyShowLayout, true); err != nil || !v {
		t.Errorf("unset Bool() = %v, %v, want default true", v, err)
	}

	if err := repo.SetBool(KeyShowLayout, false); err != nil {
		t.Fatalf("SetBool() error = %v", err)
	}
	if v, _ := repo.Bool(KeyShowLayout, true); v {
		t.Error("Bool() should return the stored false")
	}

	repo.Set(KeyEmitEvents, "not-a-bool")
	if v, err := repo.Bool(KeyEmitEvents, true); err == nil || !v {
		t.Errorf("malformed Bool() = %v, %v, want default and error", v, err)
	}
}

func TestSettingsRepository_ActiveLayout(t *testing.T) {
	s := newTestStore(t)
	repo := s.Settings()

	if id, err := repo.ActiveLayoutID(); err != nil || id != "" {
		t.Errorf("unset ActiveLayoutID() = %q, %v", id, err)
	}
	repo.SetActiveLayoutID("layout-1")
	if id, _ := repo.ActiveLayoutID(); id != "layout-1" {
		t.Errorf("ActiveLayoutID() = %q", id)
	}
}

func TestSettingsRepository_ColorTarget(t *testing.T) {
	s := newTestStore(t)
	repo := s.Settings()

	if _, ok, err := repo.ColorTarget(); ok || err != nil {
		t.Errorf("unset ColorTarget() ok=%v err=%v", ok, err)
	}

	want := ColorTarget{HueMin: 0, HueMax: 180, SatMin: 50, SatMax: 255}
	if err := repo.SetColorTarget(want); err != nil {
		t.Fatalf("SetColorTarget() error = %v", err)
	}
	got, ok, err := repo.ColorTarget()
	if err != nil || !ok {
		t.Fatalf("ColorTarget() ok=%v err=%v", ok, err)
	}
	if got != want {
		t.Errorf("ColorTarget() = %+v, want %+v", got, want)
	}

	repo.Set(KeyColorTarget, "{broken")
	if _, _, err := repo.ColorTarget(); err == nil {
		t.Error("malformed color target should error")
	}
}
