package reconciler

// Frontend receives engine output. Calls are made from the engine worker
// and must not submit operations synchronously.
type Frontend interface {
	ReportError(context, detail string)
	ReportInfo(context, detail string)
	// PromptCredential asks for the sudo password; ok is false on cancel.
	PromptCredential() (secret string, ok bool)
	OnGatewayUpdated(gateway string)
	OnRouteViewUpdated(lines []string)
}

// NopFrontend discards everything and declines credential prompts.
type NopFrontend struct{}

func (NopFrontend) ReportError(string, string) {}
func (NopFrontend) ReportInfo(string, string) {}
func (NopFrontend) PromptCredential() (string, bool) { return "", false }
func (NopFrontend) OnGatewayUpdated(string) {}
func (NopFrontend) OnRouteViewUpdated([]string) {}
