package universe

// Named forms of ApplyChunkOperation and ApplyEntityOperation. Each runs
// immediately under the writer lock and fails with an *OperationError.

func (u *Universe) RegisterRootChunk(local LocalChunkID) (ChunkID, error) {
	return u.ApplyChunkOperation(RegisterRootChunkOp(local))
}

func (u *Universe) RegisterChunk(parent ChunkID, local LocalChunkID) (ChunkID, error) {
	return u.ApplyChunkOperation(RegisterChunkOp(parent, local))
}

func (u *Universe) UnregisterChunk(id ChunkID) error {
	_, err := u.ApplyChunkOperation(UnregisterChunkOp(id))
	return err
}

func (u *Universe) LoadChunkMetadata(id ChunkID, meta ChunkMetadata) error {
	_, err := u.ApplyChunkOperation(LoadChunkMetadataOp(id, meta))
	return err
}

func (u *Universe) UnloadChunkMetadata(id ChunkID) error {
	_, err := u.ApplyChunkOperation(UnloadChunkMetadataOp(id))
	return err
}

func (u *Universe) LoadChunkData(id ChunkID, data ChunkData) error {
	_, err := u.ApplyChunkOperation(LoadChunkDataOp(id, data))
	return err
}

func (u *Universe) UnloadChunkData(id ChunkID) error {
	_, err := u.ApplyChunkOperation(UnloadChunkDataOp(id))
	return err
}

func (u *Universe) SpawnChunk(id ChunkID) error {
	_, err := u.ApplyChunkOperation(SpawnChunkOp(id))
	return err
}

func (u *Universe) DespawnChunk(id ChunkID) error {
	_, err := u.ApplyChunkOperation(DespawnChunkOp(id))
	return err
}

func (u *Universe) RegisterEntity(id EntityID) (EntityID, error) {
	return u.ApplyEntityOperation(RegisterEntityOp(id))
}

func (u *Universe) UnregisterEntity(id EntityID) error {
	_, err := u.ApplyEntityOperation(UnregisterEntityOp(id))
	return err
}

func (u *Universe) LoadEntityMetadata(id EntityID, meta EntityMetadata) error {
	_, err := u.ApplyEntityOperation(LoadEntityMetadataOp(id, meta))
	return err
}

func (u *Universe) UnloadEntityMetadata(id EntityID) error {
	_, err := u.ApplyEntityOperation(UnloadEntityMetadataOp(id))
	return err
}

func (u *Universe) LoadEntityData(id EntityID, data EntityData) error {
	_, err := u.ApplyEntityOperation(LoadEntityDataOp(id, data))
	return err
}

func (u *Universe) UnloadEntityData(id EntityID) error {
	_, err := u.ApplyEntityOperation(UnloadEntityDataOp(id))
	return err
}

func (u *Universe) SpawnEntity(id EntityID) error {
	_, err := u.ApplyEntityOperation(SpawnEntityOp(id))
	return err
}

func (u *Universe) DespawnEntity(id EntityID) error {
	_, err := u.ApplyEntityOperation(DespawnEntityOp(id))
	return err
}

// CommandEntity runs cmd against a spawned entity. cmd must not call back
// into the universe's synchronous API.
func (u *Universe) CommandEntity(id EntityID, cmd EntityCommand) error {
	_, err := u.ApplyEntityOperation(CommandEntityOp(id, cmd))
	return err
}
