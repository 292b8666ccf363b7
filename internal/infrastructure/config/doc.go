// Package config handles loading and validating the meteo collector configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables (METEO_*)
//   - Validation of required fields
//   - Default value handling
//
// Reader definitions live in the same file as the rest of the settings:
//
//	readers:
//	  - name: board
//	    driver: board_temperature
//	    sensors:
//	      - name: internalTemperature
//	        field: temperature
//	        kind: temperature
//	        unit: "°C"
//	        datatype: REAL
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Monitor.Interval)
package config
