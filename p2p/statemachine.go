// Copyright (c) 2025 The bchspv developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package p2p

import (
	"net"
	"strconv"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/shellreserve/bchspv/addrmgr"
	"github.com/shellreserve/bchspv/bfmgr"
	"github.com/shellreserve/bchspv/blockchain"
	"github.com/shellreserve/bchspv/bloom"
	"github.com/shellreserve/bchspv/chaincfg"
	"github.com/shellreserve/bchspv/headerstore"
	"github.com/shellreserve/bchspv/invmgr"
	"github.com/shellreserve/bchspv/peermgr"
	"github.com/shellreserve/bchspv/pingmgr"
	"github.com/shellreserve/bchspv/syncmgr"
	"github.com/shellreserve/bchspv/wire"
)

// StatusTimer is the name of the recurring timer the state machine arms
// for its periodic status digest.
const StatusTimer = "status"

// StatusInterval is how often the status digest is logged.
const StatusInterval = 10 * time.Second

// Config gathers everything a StateMachine needs at construction, mirroring
// the teacher's convention of a single immutable config struct handed to
// every composed sub-manager.
type Config struct {
	Params *chaincfg.Params
	Nonce  uint64
	Hooks  Hooks
	Store  *headerstore.Store

	// Connection policy, forwarded to the peer manager. Zero values get
	// the peermgr defaults.
	MaxOutbound         int
	MaxInbound          int
	Whitelist           map[string]bool
	WhitelistUserAgents []string
}

// StateMachine is the composed, single-threaded core: it owns the block
// tree, every sub-manager, and the Outbox through which every sub-manager
// communicates. No method blocks; all work happens synchronously within
// the call and any resulting I/O is queued on the Outbox for the caller to
// drain and perform.
type StateMachine struct {
	cfg Config

	tree *blockchain.BlockTree
	out  Outbox

	addr  *addrmgr.AddrManager
	peer  *peermgr.PeerManager
	ping  *pingmgr.PingManager
	sync  *syncmgr.SyncManager
	inv   *invmgr.InventoryManager
	bloom *bfmgr.BloomManager

	// scanRotate round-robins rescan getdata batches across peers.
	scanRotate int

	// lastNow is the most recent LocalTime the reactor passed in; the
	// core never reads the wall clock itself.
	lastNow time.Time

	initialized bool
}

// New constructs a StateMachine over a fresh block tree seeded from
// cfg.Params' genesis header. invStorePath is where the inventory
// manager's durable submitted-transaction mirror lives.
func New(cfg Config, invStorePath string) (*StateMachine, error) {
	tree, err := blockchain.NewBlockTree(cfg.Params)
	if err != nil {
		return nil, err
	}
	inv, err := invmgr.New(invStorePath)
	if err != nil {
		return nil, err
	}

	return &StateMachine{
		cfg:  cfg,
		tree: tree,
		addr: addrmgr.New(),
		peer: peermgr.New(peermgr.Config{
			MinProtocolVersion:  wire.MinProtocolVersion,
			RequiredServices:    chaincfg.ServicesChain,
			UserAgent:           wire.UserAgent,
			Nonce:               cfg.Nonce,
			MaxOutbound:         cfg.MaxOutbound,
			MaxInbound:          cfg.MaxInbound,
			Whitelist:           cfg.Whitelist,
			WhitelistUserAgents: cfg.WhitelistUserAgents,
		}),
		ping:  pingmgr.New(),
		sync:  syncmgr.New(tree),
		inv:   inv,
		bloom: bfmgr.New(),
	}, nil
}

// Close releases the state machine's durable resources.
func (m *StateMachine) Close() error {
	return m.inv.Close()
}

// Tree exposes the underlying block tree for read-only queries by callers
// that need more than the Command surface provides (e.g. test harnesses).
func (m *StateMachine) Tree() *blockchain.BlockTree { return m.tree }

// Initialize emits the Initializing/Ready events expected at startup and
// arms the recurring status timer.
func (m *StateMachine) Initialize(now time.Time) []Io {
	m.lastNow = now
	m.out.Event(Initializing{})
	m.initialized = true
	m.out.Timer(StatusTimer, StatusInterval)
	m.out.Event(Ready{Tip: m.tree.TipHash(), FilterTip: m.tree.TipHash(), Time: now})
	return m.out.Drain()
}

// Attempted records that the reactor started dialing addr, so a failure
// before the handshake still counts toward the address's retry backoff.
func (m *StateMachine) Attempted(addr string, now time.Time) []Io {
	m.lastNow = now
	m.peer.Attempted(addr)
	return m.out.Drain()
}

// PeerConnected begins tracking a newly established connection. For
// outbound connections we open the version handshake; an inbound peer
// speaks first. Inbound connections past the cap are refused unless
// whitelisted.
func (m *StateMachine) PeerConnected(addr string, inbound bool, now time.Time) []Io {
	m.lastNow = now
	dir := peermgr.Outbound
	if inbound {
		dir = peermgr.Inbound
	}
	if _, err := m.peer.Connected(addr, dir); err != nil {
		m.out.DisconnectFrom(addr, NewConnectionLimit())
		return m.out.Drain()
	}
	m.ping.PeerConnected(addr)
	m.out.Event(PeerConnected{Addr: addr})
	if !inbound {
		v := m.peer.BuildVersion(addr, "", m.tree.Height())
		m.out.Send(addr, v)
	}
	return m.out.Drain()
}

// PeerDisconnected drops addr from the peer, ping, sync and bloom
// managers, purging the in-flight requests they attribute to it. Block
// fetches the inventory manager sent to addr are not purged; they stay
// tracked until they time out in Tick and are requested again.
func (m *StateMachine) PeerDisconnected(addr string, reason DisconnectReason) []Io {
	m.peer.Disconnected(addr)
	m.ping.PeerDisconnected(addr)
	m.sync.PeerDisconnected(addr)
	m.bloom.PeerDisconnected(addr)
	m.inv.SetPeers(m.peer.NetworkPeers())
	m.cfg.Hooks.peerDisconnected(addr, reason)
	m.out.Event(PeerDisconnected{Addr: addr, Reason: reason})
	return m.out.Drain()
}

// HandleMessage dispatches one decoded inbound message from addr to the
// sub-managers that handle its type, in a fixed order per type: a
// version goes to the peer manager and, once accepted, to the sync
// manager; a tx goes to the inventory manager and then the bloom manager.
func (m *StateMachine) HandleMessage(addr string, msg wire.Message, now time.Time) []Io {
	m.lastNow = now
	m.cfg.Hooks.message(addr, msg)
	m.out.Event(MessageReceived{Addr: addr, Message: msg})

	switch v := msg.(type) {
	case *wire.MsgVersion:
		m.handleVersion(addr, v)

	case *wire.MsgVerAck:
		m.peer.HandleVerAck(addr)
		if p, ok := m.peer.State(addr); ok && p.Ready() {
			m.peerNegotiated(addr, p)
		}

	case *wire.MsgPing:
		m.out.Send(addr, &wire.MsgPong{Nonce: v.Nonce})

	case *wire.MsgPong:
		m.ping.ReceivedPong(addr, v.Nonce, now)

	case *wire.MsgHeaders:
		m.handleHeaders(addr, v)

	case *wire.MsgGetHeaders:
		headers := m.tree.LocateHeaders(locatorsOf(v.BlockLocatorHashes), v.HashStop, wire.MaxMessageHeaders)
		m.out.Send(addr, &wire.MsgHeaders{Headers: headerPtrs(headers)})

	case *wire.MsgInv:
		m.handleInv(addr, v, now)

	case *wire.MsgGetData:
		m.handleGetData(addr, v)

	case *wire.MsgBlock:
		m.handleBlock(addr, v)

	case *wire.MsgTx:
		m.handleTx(addr, v)

	case *wire.MsgMerkleBlock:
		m.handleMerkleBlock(addr, v)

	case *wire.MsgAddr:
		for _, na := range v.AddrList {
			m.addr.AddAddress(na, nil)
		}

	case *wire.MsgGetAddr:
		m.out.Send(addr, &wire.MsgAddr{AddrList: m.addr.AddressCache(1000)})
	}

	return m.out.Drain()
}

func (m *StateMachine) handleVersion(addr string, v *wire.MsgVersion) {
	if err := m.cfg.Hooks.version(addr, v); err != nil {
		m.out.DisconnectFrom(addr, NewPeerMisbehaving(err.Error()))
		return
	}
	if err := m.peer.HandleVersion(addr, v); err != nil {
		m.out.DisconnectFrom(addr, classifyVersionError(err, v))
		return
	}
	m.sync.PeerAnnouncedHeight(addr, v.LastBlock)
	if p, ok := m.peer.State(addr); ok && !p.VersionSent {
		// Inbound peers speak first; answer with our own version.
		m.out.Send(addr, m.peer.BuildVersion(addr, "", m.tree.Height()))
	}
	m.out.Send(addr, &wire.MsgVerAck{})
	if p, ok := m.peer.State(addr); ok && p.Ready() {
		m.peerNegotiated(addr, p)
	}
}

// peerNegotiated runs once per peer when both version and verack have
// been exchanged: register it with the other managers, push the Bloom
// filter if one is loaded, and ask for more addresses.
func (m *StateMachine) peerNegotiated(addr string, p *peermgr.PeerState) {
	m.cfg.Hooks.peerNegotiated(addr)
	m.bloom.RegisterPeer(addr)
	m.inv.SetPeers(m.peer.NetworkPeers())
	m.out.Event(PeerNegotiated{
		Addr: addr, Services: p.Services, ProtocolVersion: p.ProtocolVersion,
		UserAgent: p.UserAgent, StartHeight: p.StartHeight,
	})
	if f, ok := m.bloom.NeedsLoad(addr); ok {
		m.out.Send(addr, f)
		m.bloom.MarkLoaded(addr)
	}
	m.out.Send(addr, &wire.MsgGetAddr{})
}

func classifyVersionError(err error, v *wire.MsgVersion) DisconnectReason {
	switch err {
	case peermgr.ErrSelfConnection:
		return NewSelfConnection()
	case peermgr.ErrProtocolVersion:
		return NewPeerProtocolVersion(uint32(v.ProtocolVersion))
	case peermgr.ErrMissingServices:
		return NewPeerServices(v.Services)
	case peermgr.ErrConnectionLimit:
		return NewConnectionLimit()
	default:
		return NewOther(err.Error())
	}
}

func (m *StateMachine) handleHeaders(addr string, v *wire.MsgHeaders) {
	result, failedAt, err := m.sync.ReceiveHeaders(addr, v.Headers)
	if err != nil && failedAt == 0 {
		m.out.DisconnectFrom(addr, NewPeerMisbehaving("invalid headers"))
		return
	}
	if tc, ok := result.(blockchain.TipChanged); ok && len(tc.Reverted) > 0 {
		rollbackTo := m.tree.Height() - int32(len(tc.Connected))
		if m.cfg.Store != nil {
			m.cfg.Store.Truncate(uint32(rollbackTo))
		}
		m.bloom.Rollback(rollbackTo)
	}
	for _, ev := range tipChangedToEvents(result, m.heightOf) {
		if bp, ok := ev.(BlockProcessed); ok {
			m.cfg.Hooks.blockProcessed(bp.Hash, bp.Height)
			if m.cfg.Store != nil {
				if h, found := m.tree.GetBlock(bp.Hash); found {
					m.cfg.Store.Put(h)
				}
			}
		}
		m.out.Event(ev)
	}
	if m.sync.Synced() {
		m.out.Event(BlockHeadersSynced{Height: m.tree.Height()})
	}
}

// heightOf resolves hash to its active-chain height, -1 if it is not (or
// no longer) on the active chain.
func (m *StateMachine) heightOf(hash chainhash.Hash) int32 {
	if h, ok := m.tree.HeightOf(hash); ok {
		return h
	}
	return -1
}

func (m *StateMachine) handleInv(addr string, v *wire.MsgInv, now time.Time) {
	var want []*wire.InvVect
	for _, iv := range v.InvList {
		switch iv.Type {
		case wire.InvTypeTx:
			if !m.inv.HaveSeen(iv.Hash) {
				want = append(want, iv)
			}
		case wire.InvTypeBlock:
			if _, ok := m.tree.GetBlock(iv.Hash); !ok {
				want = append(want, iv)
				m.inv.RequestBlock(iv.Hash, addr, now)
			}
		}
	}
	if len(want) > 0 {
		m.out.Send(addr, &wire.MsgGetData{InvList: want})
	}
}

// handleGetData serves the only inventory an SPV node has to offer: its
// own submitted transactions.
func (m *StateMachine) handleGetData(addr string, v *wire.MsgGetData) {
	m.cfg.Hooks.getData(addr, v)
	var missing []*wire.InvVect
	for _, iv := range v.InvList {
		if iv.Type != wire.InvTypeTx {
			missing = append(missing, iv)
			continue
		}
		if tx, ok := m.inv.GetSubmitted(iv.Hash); ok {
			m.out.Send(addr, tx)
		} else {
			missing = append(missing, iv)
		}
	}
	if len(missing) > 0 {
		m.out.Send(addr, &wire.MsgNotFound{InvList: missing})
	}
}

func (m *StateMachine) handleBlock(addr string, b *wire.MsgBlock) {
	hash := b.BlockHash()
	m.inv.ReceivedBlock(hash)
	for _, tx := range b.Transactions {
		m.inv.Confirmed(tx.TxHash())
	}
	m.out.Event(BlockProcessed{Hash: hash, Height: m.heightOf(hash)})
}

func (m *StateMachine) handleTx(addr string, tx *wire.MsgTx) {
	m.inv.HaveSeen(tx.TxHash())
	if m.bloom.MatchesTx(tx) {
		m.cfg.Hooks.matchedTx(chainhash.Hash{}, -1, tx.TxHash())
		m.out.Event(ReceivedMatchedTx{Height: -1, TxHash: tx.TxHash()})
	}
}

func (m *StateMachine) handleMerkleBlock(addr string, mb *wire.MsgMerkleBlock) {
	height := m.heightOf(mb.Header.BlockHash())
	m.out.Event(ReceivedMerkleBlock{Addr: addr, Height: height})
	if height < 0 {
		// Not on the active chain (yet); headers-first sync will request
		// it again once its header connects.
		return
	}

	if _, err := m.bloom.HandleMerkleBlock(height, mb); err != nil {
		m.out.DisconnectFrom(addr, NewPeerMisbehaving("bad merkle block"))
		return
	}
	m.drainRescan()
}

// drainRescan consumes fully received merkle blocks in height order,
// emitting one MerkleBlockProcessed per block and a ReceivedMatchedTx per
// matched transaction, then MerkleBlockRescanStopped when the scan runs
// past its end height.
func (m *StateMachine) drainRescan() {
	processed, stopped := m.bloom.Process()
	for _, pb := range processed {
		m.out.Event(MerkleBlockProcessed{Height: pb.Height, Matched: pb.Matched, Cached: pb.Cached})
		for _, txHash := range pb.Matched {
			m.cfg.Hooks.matchedTx(pb.BlockHash, pb.Height, txHash)
			m.out.Event(ReceivedMatchedTx{BlockHash: pb.BlockHash, Height: pb.Height, TxHash: txHash})
		}
	}
	if stopped {
		m.out.Event(MerkleBlockRescanStopped{At: m.bloom.Rescan.Current})
	}
}

// requestMerkleBlocks issues getdata batches for the active rescan's
// outstanding height ranges, round-robining across block-serving peers.
func (m *StateMachine) requestMerkleBlocks() {
	r := m.bloom.Rescan
	if !r.Active {
		return
	}
	peers := m.peer.NetworkPeers()
	if len(peers) == 0 {
		return
	}

	hi := m.tree.Height()
	if r.End != nil && *r.End < hi {
		hi = *r.End
	}
	for _, rg := range r.Requests(r.Current, hi) {
		peer := peers[m.scanRotate%len(peers)]
		m.scanRotate++

		inv := make([]*wire.InvVect, 0, rg.End-rg.Start+1)
		for h := rg.Start; h <= rg.End; h++ {
			if bh, ok := m.tree.GetBlockByHeight(h); ok {
				inv = append(inv, &wire.InvVect{Type: wire.InvTypeFilteredBlock, Hash: bh.BlockHash()})
			}
		}
		if len(inv) == 0 {
			continue
		}
		m.out.Send(peer, &wire.MsgGetData{InvList: inv})
		m.out.Event(MerkleBlockScanStarted{Start: rg.Start, Stop: rg.End, Peer: peer})
	}
}

// Tick drives every time-based sub-manager: issuing the next getheaders
// request if the tree has fallen behind, pinging peers whose last ping
// is older than the ping interval, advancing
// the rescan, and detecting timeouts. Expiry is only ever detected here
// or in TimerExpired, never opportunistically elsewhere.
func (m *StateMachine) Tick(now time.Time) []Io {
	m.lastNow = now
	if peer, msg, ok := m.sync.NextRequest(now); ok {
		m.out.Send(peer, msg)
	}
	if peer, ok := m.sync.TimedOut(now); ok {
		m.out.DisconnectFrom(peer, NewPeerTimeout("getheaders"))
	}

	for _, p := range m.ping.DuePings(now) {
		m.out.Send(p.Addr, &wire.MsgPing{Nonce: p.Nonce})
	}
	for _, addr := range m.ping.Expired(now) {
		m.out.DisconnectFrom(addr, NewPeerTimeout("ping"))
	}

	for _, hash := range m.inv.TimedOutFetches(now, invmgr.DefaultBlockFetchTimeout) {
		if peer, ok := m.inv.NextFetchPeer(""); ok {
			m.inv.RequestBlock(hash, peer, now)
			m.out.Send(peer, &wire.MsgGetData{InvList: []*wire.InvVect{{Type: wire.InvTypeBlock, Hash: hash}}})
		}
	}

	m.requestMerkleBlocks()
	m.maybeConnectOutbound()

	return m.out.Drain()
}

// maybeConnectOutbound asks the address book for a candidate when below
// the outbound target.
func (m *StateMachine) maybeConnectOutbound() {
	if !m.peer.WantsOutbound() {
		return
	}
	ka := m.addr.GetAddress()
	if ka == nil {
		return
	}
	na := ka.NetAddress()
	addr := net.JoinHostPort(na.IP.String(), strconv.Itoa(int(na.Port)))
	if _, connected := m.peer.State(addr); connected {
		return
	}
	m.addr.Attempt(na)
	m.out.ConnectTo(addr)
}

// TimerExpired handles a named timer the reactor armed on the state
// machine's behalf. The status timer logs a one-line digest and re-arms
// itself; any other timer falls through to the same timeout sweep Tick
// performs.
func (m *StateMachine) TimerExpired(name string, now time.Time) []Io {
	m.lastNow = now
	if name == StatusTimer {
		r := m.bloom.Rescan
		log.Infof("tip=%d peers=%d/%d synced=%v rescan(active=%v current=%d)",
			m.tree.Height(), len(m.peer.Negotiated()), m.peer.Count(),
			m.sync.Synced(), r.Active, r.Current)
		m.out.Timer(StatusTimer, StatusInterval)
		return m.out.Drain()
	}
	return m.Tick(now)
}

// Command processes one caller-initiated command synchronously, returning
// the Io items it produced. Query replies are invoked before Command
// returns.
func (m *StateMachine) Command(cmd Command) []Io {
	switch c := cmd.(type) {
	case GetTip:
		if c.Reply != nil {
			c.Reply(m.tree.TipHash(), m.tree.Height())
		}

	case GetBlock:
		if c.Reply != nil {
			h, ok := m.tree.GetBlock(c.Hash)
			c.Reply(h, ok)
		}

	case GetBlockByHeight:
		if c.Reply != nil {
			h, ok := m.tree.GetBlockByHeight(c.Height)
			c.Reply(h, ok)
		}

	case GetPeers:
		if c.Reply != nil {
			c.Reply(m.peerInfos())
		}

	case QueryTree:
		if c.Reply != nil {
			c.Reply(m.tree.Range(c.Lo, c.Hi))
		}

	case ConnectCmd:
		m.out.ConnectTo(c.Addr)

	case DisconnectCmd:
		m.out.DisconnectFrom(c.Addr, NewCommandError("requested by caller"))

	case ImportHeaders:
		result, _, err := m.tree.ImportBlocks(c.Headers)
		if err == nil {
			for _, ev := range tipChangedToEvents(result, m.heightOf) {
				m.out.Event(ev)
			}
		}
		if c.Reply != nil {
			c.Reply(err)
		}

	case ImportAddresses:
		m.addr.AddAddresses(c.Addrs, nil)

	case RequestBlock:
		if peer, ok := m.inv.NextFetchPeer(""); ok {
			m.inv.RequestBlock(c.Hash, peer, m.lastNow)
			m.out.Send(peer, &wire.MsgGetData{InvList: []*wire.InvVect{{Type: wire.InvTypeBlock, Hash: c.Hash}}})
		}

	case RequestFilters:
		err := m.requestFilterRange(c.Start, c.End)
		if c.Reply != nil {
			c.Reply(err)
		}

	case SubmitTransaction:
		err := m.submitTransaction(c.Tx)
		if c.Reply != nil {
			c.Reply(err)
		}

	case GetSubmittedTransaction:
		if c.Reply != nil {
			tx, ok := m.inv.GetSubmitted(c.Hash)
			c.Reply(tx, ok)
		}

	case Broadcast:
		peers := m.peer.Negotiated()
		for _, addr := range peers {
			m.out.Send(addr, c.Message)
		}
		if c.Reply != nil {
			c.Reply(peers)
		}

	case LoadBloomFilter:
		f := bloom.NewFromWire(c.Content, c.HashFuncs, c.Tweak, bloom.Flag(c.Flags))
		m.bloom.LoadFilter(f)
		m.pushFilter()

	case BloomFilterClear:
		m.bloom.ClearFilter()
		for _, addr := range m.peer.Negotiated() {
			m.out.Send(addr, &wire.MsgFilterClear{})
		}

	case GetMempool:
		// One sampled peer is enough; mempool returns the whole filtered
		// mempool as inv.
		if peers := m.peer.Negotiated(); len(peers) > 0 {
			m.out.Send(peers[m.scanRotate%len(peers)], &wire.MsgMemPool{})
			m.scanRotate++
		}

	case GetPeersNotBloomFiltered:
		if c.Reply != nil {
			c.Reply(m.bloom.NotFilterLoaded())
		}

	case Rescan:
		m.startRescan(c.Start, c.End)

	case MerkleBlockRescan:
		m.startRescan(c.Start, c.End)

	case Watch:
		m.bloom.Rescan.Watches(c.Scripts...)
	}
	return m.out.Drain()
}

// pushFilter sends the active filter to every negotiated peer that does
// not have it yet.
func (m *StateMachine) pushFilter() {
	for _, addr := range m.peer.Negotiated() {
		m.bloom.RegisterPeer(addr)
		if f, ok := m.bloom.NeedsLoad(addr); ok {
			m.out.Send(addr, f)
			m.bloom.MarkLoaded(addr)
		}
	}
}

func (m *StateMachine) submitTransaction(tx *wire.MsgTx) error {
	relaying := m.peer.Relaying()
	if len(relaying) == 0 {
		return ErrNotConnected
	}
	if err := m.inv.Submit(tx); err != nil {
		return err
	}
	hash := tx.TxHash()
	m.inv.HaveSeen(hash)
	inv := &wire.MsgInv{InvList: []*wire.InvVect{{Type: wire.InvTypeTx, Hash: hash}}}
	for _, addr := range relaying {
		m.out.Send(addr, inv)
	}
	return nil
}

// requestFilterRange issues merkle-block requests over [start, end]
// without moving the rescan cursor.
func (m *StateMachine) requestFilterRange(start, end int32) error {
	if start < 0 || end < start {
		return ErrInvalidRange
	}
	peers := m.peer.NetworkPeers()
	if len(peers) == 0 {
		return ErrNotConnected
	}
	if tip := m.tree.Height(); end > tip {
		end = tip
	}
	for _, rg := range m.bloom.Rescan.Requests(start, end) {
		peer := peers[m.scanRotate%len(peers)]
		m.scanRotate++
		inv := make([]*wire.InvVect, 0, rg.End-rg.Start+1)
		for h := rg.Start; h <= rg.End; h++ {
			if bh, ok := m.tree.GetBlockByHeight(h); ok {
				inv = append(inv, &wire.InvVect{Type: wire.InvTypeFilteredBlock, Hash: bh.BlockHash()})
			}
		}
		if len(inv) == 0 {
			continue
		}
		m.out.Send(peer, &wire.MsgGetData{InvList: inv})
		m.out.Event(MerkleBlockScanStarted{Start: rg.Start, Stop: rg.End, Peer: peer})
	}
	return nil
}

// startRescan clamps the requested range to the chain and kicks off the
// first round of merkle-block requests; Tick keeps it fed as responses
// arrive and the chain advances.
func (m *StateMachine) startRescan(start int32, end *int32) {
	if start < 0 {
		start = 0
	}
	if end != nil {
		clamped := *end
		if tip := m.tree.Height(); clamped > tip {
			clamped = tip
		}
		end = &clamped
	}
	m.bloom.Rescan.Restart(start, end)
	m.requestMerkleBlocks()
}

func (m *StateMachine) peerInfos() []PeerInfo {
	var out []PeerInfo
	notLoaded := make(map[string]bool)
	for _, addr := range m.bloom.NotFilterLoaded() {
		notLoaded[addr] = true
	}
	for _, p := range m.peer.Peers() {
		info := PeerInfo{
			Addr:            p.Addr,
			Inbound:         p.Direction == peermgr.Inbound,
			Services:        p.Services,
			ProtocolVersion: p.ProtocolVersion,
			UserAgent:       p.UserAgent,
			StartHeight:     p.StartHeight,
			Relay:           p.Relay,
			HasFilter:       p.Ready() && !notLoaded[p.Addr],
		}
		if lat, ok := m.ping.Latency(p.Addr); ok {
			info.Latency = lat
		}
		out = append(out, info)
	}
	return out
}

func locatorsOf(hashes []*chainhash.Hash) []chainhash.Hash {
	out := make([]chainhash.Hash, 0, len(hashes))
	for _, h := range hashes {
		if h != nil {
			out = append(out, *h)
		}
	}
	return out
}

func headerPtrs(headers []wire.BlockHeader) []*wire.BlockHeader {
	out := make([]*wire.BlockHeader, len(headers))
	for i := range headers {
		out[i] = &headers[i]
	}
	return out
}
