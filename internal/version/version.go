package version

// Version is the build version, overridable via -ldflags "-X tickerchat-go/internal/version.Version=...".
var Version = "0.1.0"
