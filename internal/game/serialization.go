package game

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/ethduel/duel-server-go/internal/game/ledger"
)

// checksum hashes a canonical rendering of the game. Timestamps are excluded so two
// authorities replaying the same actions agree on it.
func (s *gameState) checksum() string {
	sum := sha256.Sum256([]byte(s.canonical()))
	return hex.EncodeToString(sum[:])
}

func (s *gameState) canonical() string {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "GAME:%s|%s|%s|%t|%t|%s|%d\n",
		s.ID, s.Player1, s.Player2, s.IsStarted, s.IsFinished, s.Winner, s.Seq)

	if s.Turn != nil {
		fmt.Fprintf(&buf, "TURN:%s|%d|%t\n", s.Turn.ActivePlayer(), s.Turn.TurnNumber(), s.Turn.NeedsToDraw())
	}

	// Seat order matters.
	for seat, p := range s.Players {
		if p == nil {
			continue
		}
		writePlayer(&buf, seat, p)
	}

	ids := make([]uint64, 0, len(s.Instances))
	for id := range s.Instances {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		inst := s.Instances[id]
		fmt.Fprintf(&buf, "CARD:%d|%s|%s|%s|%d|%d\n",
			id, inst.CardID, inst.Owner, inst.Zone, inst.TurnPlayed, inst.StakedETH)
	}

	return buf.String()
}

func writePlayer(buf *bytes.Buffer, seat int, p *ledger.PlayerState) {
	fmt.Fprintf(buf, "PLAYER:%d|%s|%s|%d|%d|%d|%d\n",
		seat, p.Player, p.DeckID, p.ETH, p.ColdStorage, p.ColdStorageWithdrawnThisTurn, p.DeckIndex)
	buf.WriteString("  HAND:")
	buf.WriteString(joinIDs(p.Hand))
	buf.WriteString("\n  BATTLEFIELD:")
	buf.WriteString(joinIDs(p.Battlefield))
	buf.WriteString("\n")
}

func joinIDs(ids []uint64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatUint(id, 10)
	}
	return strings.Join(parts, ",")
}

// VerifyChecksum recomputes the checksum of a live game and compares it to expected.
func (e *Engine) VerifyChecksum(gameID, expected string) (bool, error) {
	g, err := e.lookup(gameID)
	if err != nil {
		return false, err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.st.checksum() == expected, nil
}
