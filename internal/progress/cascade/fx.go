package cascade

import (
	"github.com/smallbiznis/fieldtrack/internal/events"
	"go.uber.org/fx"
)

var Module = fx.Module("progress.cascade",
	fx.Provide(NewRecomputer),
	fx.Invoke(func(dispatcher *events.Dispatcher, recomputer *Recomputer) {
		dispatcher.Register(recomputer.Handle)
	}),
)
