package config

// DefaultConfigYAML contains the default configuration YAML content.
// It is written by `crashguard init`.
const DefaultConfigYAML = `# crashguard configuration
#
# Values not specified here use built-in defaults.

app:
  # Used for the local-app-data dump location and alert identifiers
  name: PeerBanHelper
  branch: ""

# Marker, crash ledger, dump archive, alerts and exported reports live here
data_dir: data
config_dir: data/config

log:
  level: info
  # auto | text | json
  format: auto

crash:
  # Ledger entries kept; the oldest are dropped first
  max_history: 50
  # Trailing window for the frequency check
  window: 24h
  # Crashes inside the window that trigger the daily "frequent crashes" alert
  frequency_threshold: 3
  # file | badger
  ledger_backend: file
  # Ledger lines included in crash summaries
  report_history_lines: 10

archive:
  # Preserved hs_err dumps; the least recently modified are deleted first
  max_files: 10

alerts:
  # en | zh-CN
  locale: en

# Override the runtime descriptor recorded in the ledger (defaults to the Go runtime)
runtime:
  name: ""
  vendor: ""
  version: ""

server:
  enabled: false
  host: localhost
  port: 9898
  cors_origins: []

metrics:
  # Prometheus textfile collector output; empty disables the export
  textfile: ""
`
