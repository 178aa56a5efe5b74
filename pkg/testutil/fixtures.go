package testutil

import (
	"github.com/google/uuid"
)

// Fixed UUIDs for deterministic testing
var (
	TestOwnerID = uuid.MustParse("00000000-0000-0000-0000-000000000001")
	TestStaffID = uuid.MustParse("00000000-0000-0000-0000-000000000010")
)
