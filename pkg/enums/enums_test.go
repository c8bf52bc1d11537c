package enums

import "testing"

func TestParseUserRole(t *testing.T) {
	role, err := ParseUserRole("admin")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if role != UserRoleAdmin {
		t.Fatalf("expected admin, got %q", role)
	}

	if _, err := ParseUserRole("superuser"); err == nil {
		t.Fatal("expected error for unknown role")
	}
}

func TestShowRequestStatusValidity(t *testing.T) {
	for _, status := range []ShowRequestStatus{ShowRequestStatusPending, ShowRequestStatusApproved, ShowRequestStatusRejected} {
		if !status.IsValid() {
			t.Fatalf("expected %q to be valid", status)
		}
	}
	if ShowRequestStatus("denied").IsValid() {
		t.Fatal("expected unknown request status to be invalid")
	}
}

func TestMixcloudStatusParse(t *testing.T) {
	status, err := ParseMixcloudStatus("uploading")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != MixcloudStatusUploading {
		t.Fatalf("expected uploading, got %q", status)
	}

	if _, err := ParseMixcloudStatus("queued"); err == nil {
		t.Fatal("expected error for unknown mixcloud status")
	}
}
