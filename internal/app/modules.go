package app

import (
	"github.com/vk/sweepgrid/internal/registry"
	"github.com/vk/sweepgrid/modules/command"
	"github.com/vk/sweepgrid/modules/device"
	"github.com/vk/sweepgrid/modules/env_vars"
	"github.com/vk/sweepgrid/modules/http_request"
	"github.com/vk/sweepgrid/modules/plt"
	"github.com/vk/sweepgrid/modules/print"
	"github.com/vk/sweepgrid/modules/s3"
	"github.com/vk/sweepgrid/modules/template"
)

// coreModules is the definitive list of all modules that are compiled into
// the sweepgrid binary.
var coreModules = []registry.Module{
	&command.Module{},
	&template.Module{},
	&plt.Module{},
	&device.Module{},
	&print.Module{},
	&env_vars.Module{},
	&http_request.Module{},
	&s3.Module{},
}
