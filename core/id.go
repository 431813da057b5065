package core

import (
	"github.com/google/uuid"

	"pkt.systems/consolefold/schema"
)

func newPaneID() schema.PaneID {
	return schema.PaneID(uuid.NewString())
}
