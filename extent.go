package ghal

// Extent2D/Extent3D are the minimal size value types this package owns
// directly; full vector/extent math is an external collaborator per spec
// §1, but image dimensions and dispatch sizes are core GHAL vocabulary.
type Extent2D struct {
	Width, Height uint32
}

type Extent3D struct {
	Width, Height, Depth uint32
}

func (e Extent3D) To2D() Extent2D { return Extent2D{Width: e.Width, Height: e.Height} }

// DispatchExtent pairs a total work size with a workgroup size and rounds up
// to the number of workgroups a compute dispatch must launch. Grounded on
// the original_source's DispatchExtent::get_extent, spec §8 scenario 6.
type DispatchExtent struct {
	total     Extent3D
	workgroup Extent3D
}

func NewDispatchExtent(total, workgroup Extent3D) DispatchExtent {
	return DispatchExtent{total: total, workgroup: workgroup}
}

func ceilDiv(a, b uint32) uint32 {
	if b == 0 {
		return 0
	}
	return (a + b - 1) / b
}

// GetExtent returns the ceil(total/workgroup) dispatch count per axis.
func (d DispatchExtent) GetExtent() Extent3D {
	return Extent3D{
		Width:  ceilDiv(d.total.Width, d.workgroup.Width),
		Height: ceilDiv(d.total.Height, d.workgroup.Height),
		Depth:  ceilDiv(d.total.Depth, d.workgroup.Depth),
	}
}
