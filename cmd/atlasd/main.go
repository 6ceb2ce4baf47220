// Command atlasd serves the Atlas Scientific device driver over HTTP.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"atlas-scientific-service/internal/api"
	"atlas-scientific-service/internal/atlas"
	"atlas-scientific-service/internal/atlaslog"
	"atlas-scientific-service/internal/config"
	"atlas-scientific-service/internal/i2c"
)

func main() {
	if _, err := host.Init(); err != nil {
		log.Fatalf("periph host init: %v", err)
	}

	cfg := config.FromEnv()

	logger, err := atlaslog.New()
	if err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer logger.Sync()

	periphBus, err := i2creg.Open(fmt.Sprintf("/dev/i2c-%d", cfg.I2CBusNumber))
	if err != nil {
		logger.Errorw("failed to open i2c bus", "bus", cfg.I2CBusNumber, "error", err)
		log.Fatalf("i2c open: %v", err)
	}
	defer periphBus.Close()

	rawBus := i2c.NewPeriphBus(periphBus)
	bus := atlas.NewBus(rawBus, atlas.WithTimeout(cfg.SessionTimeout), atlas.WithLogger(logger))
	bus.Scan(context.Background())

	handler := api.NewServer(bus, logger)

	logger.Infow("listening", "address", cfg.ListenAddress)
	if err := http.ListenAndServe(cfg.ListenAddress, handler); err != nil {
		logger.Errorw("server stopped", "error", err)
	}
}
