package mcpserver

// SourceFormatContract documents the YAML accepted for model sources.
const SourceFormatContract = `# mdlforge Model Source Format

A model source is a UTF-8 YAML file whose name ends in ` + "`.model.yaml`" + `.
Each source exports to an MDL text file with the same stem and a ` + "`.mdl`" + `
extension.

## Structure

` + "```" + `yaml
name: Crate                      # REQUIRED, no double quotes or line breaks
format_version: 800              # OPTIONAL, default 800
blend_time: 150                  # OPTIONAL, default 150
animation_file: Crate_Anims.mdx  # OPTIONAL
extent:                          # OPTIONAL
  min: [-1, -1, 0]
  max: [1, 1, 2]
  radius: 1.5
sequences:                       # OPTIONAL
  - name: Stand
    interval: [0, 1000]          # REQUIRED, exactly two integers
    non_looping: false
    move_speed: 0
    rarity: 0
    sync_point: 0
global_sequences: [3000]         # OPTIONAL, durations in ms
helpers:                         # OPTIONAL, declaration order = object id
  - name: Root
    pivot: [0, 0, 1]
  - name: Lid
    parent: Root                 # another helper, by name
    dont_inherit: [rotation]     # any of translation, rotation, scaling
    billboarded: true            # also billboarded_lock_x/y/z, camera_anchored
    translation:
      interpolation: linear      # dontinterp, linear, hermite, bezier
      global_seq: 0              # OPTIONAL index into global_sequences
      keys:
        - time: 0
          value: [0, 0, 0]
    rotation:                    # quaternions, 4 components
      interpolation: hermite
      keys:
        - time: 1000
          value: [0, 0, 0, 1]
          in_tan: [0, 0, 0, 1]   # REQUIRED for hermite and bezier
          out_tan: [0, 0, 0, 1]
    scaling:
      static: [2, 2, 2]          # used when there are no keys
` + "```" + `

## Rules

1. Helper names are unique within a model. A helper cannot be its own parent.
2. Vectors have exactly 3 components, rotations exactly 4.
3. A track with keys needs an interpolation.
4. Static values equal to the identity (zero translation, identity rotation,
   unit scaling) are omitted from the MDL output.
5. Numbers are written in their shortest round-trip form; MDL output uses
   CRLF line endings and tab indentation.
`
