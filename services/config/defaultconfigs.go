package config

// -----------------------------------------------------------------------------
// Embedded configuration
//
// Populate embeddedConfigs at build time (e.g. via code generation) or
// manually during development.
// Key: board variant ID (same value placed in ctx under CtxDeviceKey)
// Val: raw JSON bytes for that board
// -----------------------------------------------------------------------------

const cfgDevkit = `{
  "pins": {
      "zones": [
          {"name": "greenhouse", "pins": [4, 5, 27]},
          {"name": "pump_house", "pins": [32, 33]}
      ]
  },
  "telemetry": {
      "interval": 5
  },
  "command": {
      "baud": 115200
  }
}`

const cfgRover = `{
  "pins": {
      "zones": [
          {"name": "drive", "pins": [4, 5]},
          {"name": "mast", "pins": [25, 26]}
      ]
  },
  "telemetry": {
      "interval": 2
  },
  "command": {
      "baud": 115200
  }
}`

var embeddedConfigs = map[string][]byte{
	"esp32_devkit": []byte(cfgDevkit),
	"esp32_rover":  []byte(cfgRover),
}
