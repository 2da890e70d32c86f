package contour

// Depths returns the nesting depth of every path: the number of other closed
// paths that contain its first point. Open paths get -1.
func Depths(paths []Path) []int {
	depths := make([]int, len(paths))
	for i, p := range paths {
		if !p.Closed || len(p.Points) < 4 {
			depths[i] = -1
			continue
		}
		probe := p.Points[0]
		for j, q := range paths {
			if j != i && q.Closed && len(q.Points) >= 4 && q.Contains(probe) {
				depths[i]++
			}
		}
	}
	return depths
}

// Group splits paths into islands. Each group starts with an outer boundary
// (even depth) followed by the holes directly inside it. Open paths and
// degenerate rings form groups of their own. Groups are ordered by the
// position of their first path in the input.
func Group(paths []Path) [][]Path {
	depths := Depths(paths)
	groupOf := make(map[int]int)
	var groups [][]Path

	for i, p := range paths {
		if depths[i] < 0 || depths[i]%2 == 0 {
			groupOf[i] = len(groups)
			groups = append(groups, []Path{p})
		}
	}
	for i, p := range paths {
		d := depths[i]
		if d < 0 || d%2 == 0 {
			continue
		}
		parent := -1
		for j, q := range paths {
			if j != i && depths[j] == d-1 && q.Contains(p.Points[0]) {
				parent = j
				break
			}
		}
		if g, ok := groupOf[parent]; ok {
			groups[g] = append(groups[g], p)
			continue
		}
		groups = append(groups, []Path{p})
	}
	return groups
}
