package authz

import (
	"testing"

	"github.com/Rhaonthemoon/radio-bug/pkg/enums"
	"github.com/google/uuid"
)

func TestCanManage(t *testing.T) {
	t.Parallel()

	owner := uuid.New()
	other := uuid.New()

	cases := []struct {
		name    string
		role    enums.UserRole
		ownerID uuid.UUID
		userID  uuid.UUID
		want    bool
	}{
		{"admin manages anything", enums.UserRoleAdmin, owner, other, true},
		{"owner manages own", enums.UserRoleArtist, owner, owner, true},
		{"artist cannot manage others", enums.UserRoleArtist, owner, other, false},
		{"nil owner never matches", enums.UserRoleArtist, uuid.Nil, uuid.Nil, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CanManage(tc.role, tc.ownerID, tc.userID); got != tc.want {
				t.Fatalf("CanManage = %v, want %v", got, tc.want)
			}
		})
	}
}
