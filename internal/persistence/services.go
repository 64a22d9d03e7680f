package persistence

import (
	"github.com/zhulik/pal"

	"threadlytics/internal/core"
	"threadlytics/internal/persistence/threads"
)

func Provide() pal.ServiceDef {
	return pal.ProvideList(
		pal.Provide[core.DB](&DB{}),
		pal.Provide[core.Repository](&threads.Repository{}),
	)
}
