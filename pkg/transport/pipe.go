package transport

// Pipe holds the two directional buffers of an in-memory connection pair
// and the adapters wired crosswise over them: what one endpoint sends, the
// other receives.
type Pipe struct {
	// ClientToServer buffers bytes flowing from the client endpoint to the
	// server endpoint; ServerToClient the reverse direction.
	ClientToServer *Buffer
	ServerToClient *Buffer

	// Client and Server are the adapters handed to the respective
	// connections.
	Client *Adapter
	Server *Adapter
}

// NewPipe creates an in-memory connection pair.
func NewPipe() *Pipe {
	cts := NewBuffer()
	stc := NewBuffer()
	return &Pipe{
		ClientToServer: cts,
		ServerToClient: stc,
		Client:         NewBufferAdapter(stc, cts),
		Server:         NewBufferAdapter(cts, stc),
	}
}

// SetMaxChunk caps per-call transfer size on both directions. Zero removes
// the cap.
func (p *Pipe) SetMaxChunk(n int) {
	p.ClientToServer.MaxChunk = n
	p.ServerToClient.MaxChunk = n
}

// Close closes both directions.
func (p *Pipe) Close() {
	p.ClientToServer.Close()
	p.ServerToClient.Close()
}
