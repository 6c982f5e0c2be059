package config

// Template is the annotated config written by `callrank init`. Every value
// matches Default.
const Template = `# callrank configuration

# Extraction and scoring workers. 0 uses GOMAXPROCS.
workers = 0

scan {
  extensions        = [".py"]
  respect_gitignore = true
  max_file_size     = 1000000
  # "replace" keeps files with invalid UTF-8, "strict" skips them.
  decode = "replace"
}

extract {
  # "text" or "treesitter"
  mode          = "text"
  qualify_names = false
}

complexity {
  # "treesitter", "file" or "none"
  scorer = "treesitter"
  # file = "complexity.json"
}

scheduler {
  host          = "127.0.0.1"
  port          = 65432
  dial_timeout  = "5s"
  write_timeout = "10s"
  retries       = 0
  retry_delay   = "200ms"
}

log {
  level  = "info"
  format = "text"
}

watch {
  debounce   = "500ms"
  cache_size = 4096
}
`
