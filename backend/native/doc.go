// Package native implements the rine GPU contracts on top of
// github.com/gogpu/wgpu/hal.
//
// An [Instance] opens a hal backend and selects an [Adapter]; the adapter
// opens a [Device] and [Queue] whose encoders, passes and command buffers
// satisfy the rine interfaces. [OverlayRenderer] draws overlay meshes with
// a small colored-triangle pipeline.
//
// Window-system surfaces are not wrapped here. A platform implementation
// acquires its surface textures and hands their views to the loop through
// [NewTextureView].
//
//	inst, err := native.Open(gputypes.BackendVulkan)
//	if err != nil {
//	    return err
//	}
//	defer inst.Destroy()
//	adapter, err := inst.RequestAdapter(ctx, rine.AdapterOptions{})
package native
