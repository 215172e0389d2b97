package workflow

// Transition computes where a single item lands when it is advanced.
//
// Items in a branch stage (see RequiresShop) jump straight to Painting with
// the forced shop when one is supplied. Everything else moves to the next
// stage and keeps its shop. Passing ShopNone as forced means no shop was
// chosen; Transition never blocks on that, gating is the caller's job.
func Transition(status Status, shop Shop, forced Shop) (Status, Shop) {
	if RequiresShop(status) && forced.Assigned() {
		return StatusPainting, forced
	}
	return NextStatus(status), shop
}
