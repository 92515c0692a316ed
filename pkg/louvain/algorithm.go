package louvain

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog"
)

// Result is the algorithm output.
type Result struct {
	FinalCommunities []int       // community ID per original node
	Modularity       float64     // modularity of the final partition
	NumCommunities   int         // number of non-empty communities
	NumLevels        int         // hierarchical levels executed
	Levels           []LevelInfo // per-level summary
	RuntimeMS        int64
}

// LevelInfo summarizes one hierarchical level.
type LevelInfo struct {
	Level          int
	NumNodes       int
	NumCommunities int
	NumMoves       int
	Modularity     float64
	RuntimeMS      int64
}

// community tracks the partition state during one level.
type community struct {
	nodeToComm   []int
	commNodes    [][]int
	commWeight   []float64 // total weighted degree per community
	commInternal []float64 // internal edge weight per community (doubled)
	numComms     int
}

func newCommunity(g *Graph) *community {
	n := g.NumNodes
	c := &community{
		nodeToComm:   make([]int, n),
		commNodes:    make([][]int, n),
		commWeight:   make([]float64, n),
		commInternal: make([]float64, n),
		numComms:     n,
	}
	for i := 0; i < n; i++ {
		c.nodeToComm[i] = i
		c.commNodes[i] = []int{i}
		c.commWeight[i] = g.Degrees[i]
		c.commInternal[i] = g.EdgeWeight(i, i) * 2
	}
	return c
}

// modularity computes the resolution-weighted Newman modularity
// Q = sum_c [ in_c/2m - gamma*(tot_c/2m)^2 ].
func modularity(g *Graph, c *community, gamma float64) float64 {
	if g.TotalWeight == 0 {
		return 0
	}
	m2 := 2 * g.TotalWeight
	q := 0.0
	for comm := 0; comm < c.numComms; comm++ {
		if len(c.commNodes[comm]) == 0 {
			continue
		}
		in := c.commInternal[comm]
		tot := c.commWeight[comm]
		q += in/m2 - gamma*(tot/m2)*(tot/m2)
	}
	return q
}

// moveGain computes the modularity gain from moving a node into a target
// community, given the node's total edge weight into it. Terms shared by
// all candidate communities are dropped.
func moveGain(g *Graph, c *community, node, target int, edgeWeight, gamma float64) float64 {
	m2 := 2 * g.TotalWeight
	return edgeWeight/g.TotalWeight - gamma*(g.Degrees[node]*c.commWeight[target])/(m2*g.TotalWeight)
}

// weightToComm sums the edge weight from a node into a community,
// excluding the node's own self-loop.
func weightToComm(g *Graph, c *community, node, target int) float64 {
	weight := 0.0
	neighbors, weights := g.Neighbors(node)
	for i, neighbor := range neighbors {
		if neighbor != node && c.nodeToComm[neighbor] == target {
			weight += weights[i]
		}
	}
	return weight
}

// moveNode reassigns a node between communities and updates the
// incremental weights.
func moveNode(g *Graph, c *community, node, oldComm, newComm int) {
	if oldComm == newComm {
		return
	}
	degree := g.Degrees[node]

	oldNodes := c.commNodes[oldComm]
	for i, n := range oldNodes {
		if n == node {
			c.commNodes[oldComm] = append(oldNodes[:i], oldNodes[i+1:]...)
			break
		}
	}
	oldWeight := weightToComm(g, c, node, oldComm)
	c.commWeight[oldComm] -= degree
	c.commInternal[oldComm] -= 2 * oldWeight

	c.commNodes[newComm] = append(c.commNodes[newComm], node)
	c.nodeToComm[node] = newComm

	newWeight := weightToComm(g, c, node, newComm)
	selfLoop := g.EdgeWeight(node, node)
	c.commWeight[newComm] += degree
	c.commInternal[newComm] += 2 * (newWeight + selfLoop)
}

// oneLevel runs the local move phase until convergence or the iteration
// cap. Node order is shuffled each pass with the seeded generator.
func oneLevel(g *Graph, c *community, cfg *Config, rng *rand.Rand, logger zerolog.Logger) (bool, int) {
	improved := false
	totalMoves := 0
	gamma := cfg.Resolution()

	nodes := make([]int, g.NumNodes)
	for i := range nodes {
		nodes[i] = i
	}

	for iteration := 0; iteration < cfg.MaxIterations(); iteration++ {
		iterationMoves := 0
		rng.Shuffle(len(nodes), func(i, j int) { nodes[i], nodes[j] = nodes[j], nodes[i] })

		for _, node := range nodes {
			oldComm := c.nodeToComm[node]
			bestComm := oldComm
			bestGain := 0.0

			neighborComms := make(map[int]float64)
			neighbors, weights := g.Neighbors(node)
			for i, neighbor := range neighbors {
				if neighbor == node {
					continue
				}
				neighborComms[c.nodeToComm[neighbor]] += weights[i]
			}
			if _, ok := neighborComms[oldComm]; !ok {
				neighborComms[oldComm] = 0
			}

			for target, edgeWeight := range neighborComms {
				if len(c.commNodes[target]) == 0 {
					continue
				}
				gain := moveGain(g, c, node, target, edgeWeight, gamma)
				if gain > bestGain {
					bestComm = target
					bestGain = gain
				}
			}

			if bestComm != oldComm && bestGain > cfg.MinModularityGain() {
				moveNode(g, c, node, oldComm, bestComm)
				iterationMoves++
				improved = true
			}
		}

		totalMoves += iterationMoves

		if cfg.EnableProgress() && iteration%10 == 0 {
			logger.Info().
				Int("iteration", iteration+1).
				Int("moves", iterationMoves).
				Float64("modularity", modularity(g, c, gamma)).
				Msg("Local optimization progress")
		}

		if iterationMoves == 0 {
			logger.Debug().Int("iteration", iteration+1).Msg("Converged: no moves")
			break
		}
	}

	return improved, totalMoves
}

// aggregate builds the super-graph whose nodes are the non-empty
// communities, plus the mapping from super-node to member nodes.
func aggregate(g *Graph, c *community) (*Graph, [][]int, error) {
	validComms := make([]int, 0)
	for comm := 0; comm < c.numComms; comm++ {
		if len(c.commNodes[comm]) > 0 {
			validComms = append(validComms, comm)
		}
	}
	if len(validComms) == 0 {
		return nil, nil, fmt.Errorf("no non-empty communities")
	}

	commToSuper := make(map[int]int, len(validComms))
	mapping := make([][]int, len(validComms))
	for i, comm := range validComms {
		commToSuper[comm] = i
		mapping[i] = append([]int(nil), c.commNodes[comm]...)
	}

	superEdges := make(map[[2]int]float64)
	for node := 0; node < g.NumNodes; node++ {
		superU := commToSuper[c.nodeToComm[node]]
		neighbors, weights := g.Neighbors(node)
		for i, neighbor := range neighbors {
			superV := commToSuper[c.nodeToComm[neighbor]]
			edge := [2]int{superU, superV}
			if superV < superU {
				edge = [2]int{superV, superU}
			}
			w := weights[i]
			// A u!=v edge is visited from both endpoints, a self-loop
			// only once; double it so the halving below treats both alike
			// and total weight is preserved.
			if neighbor == node {
				w *= 2
			}
			superEdges[edge] += w
		}
	}

	super := NewGraph(len(validComms))
	for edge, weight := range superEdges {
		if err := super.AddEdge(edge[0], edge[1], weight/2); err != nil {
			return nil, nil, err
		}
	}

	return super, mapping, nil
}

// Run executes the full hierarchical algorithm and returns the final
// partition projected back onto the original nodes.
func Run(ctx context.Context, g *Graph, cfg *Config) (*Result, error) {
	start := time.Now()
	logger := cfg.CreateLogger()

	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("invalid graph: %w", err)
	}

	logger.Info().
		Int("nodes", g.NumNodes).
		Float64("total_weight", g.TotalWeight).
		Float64("resolution", cfg.Resolution()).
		Msg("Starting community detection")

	rng := rand.New(rand.NewSource(cfg.RandomSeed()))
	result := &Result{}

	// membership[i] tracks the original nodes collapsed into node i of
	// the current level's graph.
	membership := make([][]int, g.NumNodes)
	for i := range membership {
		membership[i] = []int{i}
	}

	current := g.Clone()
	comm := newCommunity(current)

	for level := 0; level < cfg.MaxLevels(); level++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		levelStart := time.Now()
		improved, moves := oneLevel(current, comm, cfg, rng, logger)
		mod := modularity(current, comm, cfg.Resolution())

		numComms := 0
		for i := 0; i < comm.numComms; i++ {
			if len(comm.commNodes[i]) > 0 {
				numComms++
			}
		}

		result.Levels = append(result.Levels, LevelInfo{
			Level:          level,
			NumNodes:       current.NumNodes,
			NumCommunities: numComms,
			NumMoves:       moves,
			Modularity:     mod,
			RuntimeMS:      time.Since(levelStart).Milliseconds(),
		})

		logger.Info().
			Int("level", level).
			Int("communities", numComms).
			Int("moves", moves).
			Float64("modularity", mod).
			Msg("Level completed")

		if !improved || numComms == 1 {
			break
		}

		super, mapping, err := aggregate(current, comm)
		if err != nil {
			return nil, fmt.Errorf("aggregation failed at level %d: %w", level, err)
		}
		if super.NumNodes >= current.NumNodes {
			break
		}

		// Fold the level mapping into original-node membership.
		nextMembership := make([][]int, super.NumNodes)
		for superNode, members := range mapping {
			for _, node := range members {
				nextMembership[superNode] = append(nextMembership[superNode], membership[node]...)
			}
		}
		membership = nextMembership

		current = super
		comm = newCommunity(current)
	}

	// Project the final partition back onto the original nodes, with
	// community IDs renumbered densely in node order.
	final := make([]int, g.NumNodes)
	renumber := make(map[int]int)
	for node := 0; node < current.NumNodes; node++ {
		id, ok := renumber[comm.nodeToComm[node]]
		if !ok {
			id = len(renumber)
			renumber[comm.nodeToComm[node]] = id
		}
		for _, original := range membership[node] {
			final[original] = id
		}
	}

	result.FinalCommunities = final
	result.NumCommunities = len(renumber)
	result.Modularity = modularity(current, comm, cfg.Resolution())
	result.NumLevels = len(result.Levels)
	result.RuntimeMS = time.Since(start).Milliseconds()

	logger.Info().
		Int("levels", result.NumLevels).
		Int("communities", result.NumCommunities).
		Float64("final_modularity", result.Modularity).
		Int64("runtime_ms", result.RuntimeMS).
		Msg("Community detection completed")

	return result, nil
}
