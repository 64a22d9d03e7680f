package nats

import (
	"github.com/zhulik/pal"

	"threadlytics/internal/core"
)

func Provide() pal.ServiceDef {
	return pal.ProvideList(
		pal.Provide(&NATS{}),
		pal.Provide[core.CursorStore](&CursorStore{}),
		pal.Provide[core.Publisher](&Publisher{}),
	)
}
